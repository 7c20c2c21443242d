// Package retention runs the scheduled maintenance sweeps.
//
// # Overview
//
// Three kinds of data age out of the decision service: policies past their
// expiry, threat history rows past the configured retention window, and
// cached verdicts past their severity TTL. The Sweeper removes all three in
// one pass, and the Scheduler runs that pass on a cron schedule (daily at
// 3 AM by default).
//
// # Usage
//
//	sweeper, err := retention.NewSweeper(retention.SweeperConfig{
//	    Graph:    graph,
//	    Verdicts: verdictCache,
//	})
//	if err != nil {
//	    return err
//	}
//
//	scheduler := retention.NewScheduler(sweeper, "0 3 * * *")
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
package retention
