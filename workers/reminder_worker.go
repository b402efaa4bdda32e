// workers/reminder_worker.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"tarot-miniapp-backend/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StreakReminderWorker nudges users whose streak lapses today. One batch runs
// per day; sends are throttled by a fixed minimum delay, never retried, and
// only counted.
type StreakReminderWorker struct {
	db        *gorm.DB
	telegram  *TelegramClient
	sendDelay time.Duration
	hour      int
}

func NewStreakReminderWorker(db *gorm.DB, telegram *TelegramClient, hour int) *StreakReminderWorker {
	if hour < 0 || hour > 23 {
		hour = 18
	}
	return &StreakReminderWorker{
		db:        db,
		telegram:  telegram,
		sendDelay: 100 * time.Millisecond,
		hour:      hour,
	}
}

// Start schedules the daily batch and blocks until ctx is cancelled.
func (w *StreakReminderWorker) Start(ctx context.Context) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		log.Printf("[Reminder] ❌ scheduler init failed: %v", err)
		return
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(w.hour), 0, 0))),
		gocron.NewTask(func() {
			w.runBatch(ctx)
		}),
	)
	if err != nil {
		log.Printf("[Reminder] ❌ job registration failed: %v", err)
		return
	}

	sched.Start()
	log.Printf("🔔 Streak reminder worker scheduled daily at %02d:00 UTC", w.hour)

	<-ctx.Done()
	_ = sched.Shutdown()
	log.Println("⏹️ Streak reminder worker stopped")
}

// runBatch messages every user whose last claim was yesterday — today is
// their last chance to keep the streak alive.
func (w *StreakReminderWorker) runBatch(ctx context.Context) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	var users []models.User
	if err := w.db.
		Where("streak_last_date = ? AND streak_count > 0", yesterday).
		Find(&users).Error; err != nil {
		log.Printf("[Reminder] ❌ DB error loading users: %v", err)
		return
	}
	if len(users) == 0 {
		log.Println("[Reminder] ✅ No streaks at risk today")
		return
	}

	log.Printf("[Reminder] 📤 Sending %d streak reminders…", len(users))

	var sent, failed int
	for i, user := range users {
		select {
		case <-ctx.Done():
			log.Printf("[Reminder] ⏹️ Cancelled after %d sends", sent)
			return
		default:
		}

		// Fixed minimum delay between messages; no retries on failure.
		if i > 0 {
			time.Sleep(w.sendDelay)
		}

		text := fmt.Sprintf("🔥 Your %d-day streak ends tonight! Draw today's card to keep it going.", user.StreakCount)
		if err := w.telegram.SendMessage(user.TelegramID, text); err != nil {
			failed++
			continue
		}
		sent++
	}

	log.Printf("[Reminder] ✅ Batch done: %d sent, %d failed", sent, failed)
}
