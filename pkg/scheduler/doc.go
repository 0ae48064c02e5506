// Package scheduler runs named jobs on fixed schedules inside the process.
//
// Jobs are registered before Start and executed on the scheduler goroutine,
// one at a time. A job that is still running when it becomes due again is
// skipped for that tick. Start blocks until Stop is called or the context is
// cancelled; RunNow executes a job synchronously, which is how operators and
// tests trigger a sweep outside the schedule.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.Add("billing-sweep", scheduler.EveryInterval(time.Hour), func(ctx context.Context, now time.Time) error {
//		_, err := svc.RunSweepOnce(ctx, now)
//		return err
//	})
//	go s.Start(ctx)
//	defer s.Stop()
package scheduler
