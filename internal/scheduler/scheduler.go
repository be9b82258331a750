// Package scheduler runs the reminder loop: a minute tick that pushes a
// record prompt to every user whose configured local time has arrived.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kotahealth/healthbot/internal/service"
)

// Start creates and starts the reminder scheduler. Callers own shutdown.
func Start(svc *service.Service) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
			defer cancel()
			tick(ctx, svc)
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}

func tick(ctx context.Context, svc *service.Service) {
	settings, err := svc.ListReminders(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list reminders: %v", err)
		return
	}

	nowUTC := time.Now().UTC()

	for _, st := range settings {
		loc, err := time.LoadLocation(st.TZ)
		if err != nil {
			log.Printf("scheduler: bad timezone %q for user %s", st.TZ, st.UserID)
			continue
		}

		now := nowUTC.In(loc).Format("15:04")

		if st.MorningAt != "" && now == st.MorningAt {
			if err := svc.PushReminder(ctx, st.UserID, "morning"); err != nil {
				log.Printf("scheduler: failed to push morning reminder to %s: %v", st.UserID, err)
			}
		}
		if st.EveningAt != "" && now == st.EveningAt {
			if err := svc.PushReminder(ctx, st.UserID, "evening"); err != nil {
				log.Printf("scheduler: failed to push evening reminder to %s: %v", st.UserID, err)
			}
		}
	}
}
