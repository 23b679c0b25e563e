// Package main runs the restaurant cache mirrors and logs the derived views
// the site renders until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/app"
	"github.com/trattoria/livesync/cache"
	"github.com/trattoria/livesync/entity"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/views"
	"go.uber.org/zap"
)

var (
	seed        = flag.Bool("seed", false, "Seed the in-process collections with demo documents (memory feed mode only)")
	stopTimeout = flag.Duration("stop-timeout", 10*time.Second, "Time allowed for the final snapshot refresh")
)

func main() {
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	a, err := app.New(zlog, cfg)
	if err != nil {
		logger.Error("failed to build app", zap.Error(err))
		os.Exit(1)
	}
	if err := a.Start(); err != nil {
		logger.Error("failed to start app", zap.Error(err))
		os.Exit(1)
	}
	if *seed {
		seedDemo(a.Memory(), zlog)
	}

	closeViews := watch(a, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	closeViews()
	stopCtx, cancel := context.WithTimeout(context.Background(), *stopTimeout)
	defer cancel()
	a.Stop(stopCtx)
}

// watch logs every change of the page projections
func watch(a *app.App, log logger.Logger) func() {
	favorites := views.Watch(a.Menu, views.AvailableFavorites, func(items []entity.MenuItem, st cache.Stats) {
		log.Info("favorites", zap.Int("count", len(items)), zap.Bool("online", st.IsOnline), zap.Bool("stale", st.Stale))
	})
	upcoming := views.Watch(a.Offers, views.UpcomingOffers, func(offers []entity.Offer, st cache.Stats) {
		log.Info("upcoming offers", zap.Int("count", len(offers)), zap.Bool("online", st.IsOnline))
	})
	reviews := views.Watch(a.Reviews, views.Summarize, func(s views.ReviewSummary, st cache.Stats) {
		log.Info("reviews", zap.Int("count", s.Count), zap.String("rating", s.Rounded.StringFixed(1)), zap.Bool("online", st.IsOnline))
	})
	hours := views.Watch(a.Hours, func(docs []entity.BusinessHours) bool {
		return views.IsOpen(time.Now())(docs)
	}, func(open bool, st cache.Stats) {
		log.Info("opening hours", zap.Bool("open_now", open), zap.Time("last_updated", st.LastUpdated))
	})
	return func() {
		favorites.Close()
		upcoming.Close()
		reviews.Close()
		hours.Close()
	}
}

func seedDemo(feeds *app.MemoryFeeds, log logger.Logger) {
	if feeds == nil {
		log.Warn("seed ignored outside the memory feed mode")
		return
	}
	now := time.Now().UTC()
	feeds.Menu.Put(entity.MenuItem{ID: "carbonara", Name: "Carbonara", Category: "Pasta", Price: decimal.RequireFromString("14.50"), Favorite: true, Available: true, CreatedAt: now})
	feeds.Menu.Put(entity.MenuItem{ID: "tiramisu", Name: "Tiramisù", Category: "Dolci", Price: decimal.RequireFromString("7.00"), Available: true, CreatedAt: now})
	feeds.Offers.Put(entity.Offer{ID: "aperitivo", Title: "Aperitivo hour", Discount: decimal.NewFromInt(20), IsActive: true, CreatedAt: now})
	feeds.Reviews.Put(entity.Review{ID: "r1", Author: "Giulia", Rating: 5, Comment: "Best carbonara in town", Featured: true, CreatedAt: now})
	feeds.Reviews.Put(entity.Review{ID: "r2", Author: "Marco", Rating: 4, CreatedAt: now})
	days := make(map[string]entity.DayHours, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		days[entity.WeekdayKey(d)] = entity.DayHours{Open: "12:00", Close: "23:30"}
	}
	days[entity.WeekdayKey(time.Monday)] = entity.DayHours{Closed: true}
	feeds.Hours.Put(entity.BusinessHours{ID: "main", Timezone: "Europe/Rome", Days: days, UpdatedAt: now})
	log.Info("demo documents seeded")
}
