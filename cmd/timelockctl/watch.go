package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/timelock-wallet-client/pkg/lockcache"
	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
)

func newWatchCommand(env *environment) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically re-check cached locks and report the ones that unlock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := env.timelockClient(ctx, false)
			if err != nil {
				return err
			}

			cache, err := env.lockCache(ctx)
			if err != nil {
				return err
			}

			w := &watcher{
				log:    env.log.WithField("method", "watch"),
				client: client,
				cache:  cache,
			}

			job := cron.New(
				cron.WithLocation(time.Local),
				cron.WithChain(watchChain(w.log)...),
			)
			if _, err := job.AddFunc(schedule, func() { w.tick(ctx) }); err != nil {
				return errors.Wrapf(err, "invalid schedule %q", schedule)
			}

			w.log.WithField("schedule", schedule).Info("watching cached locks")
			w.tick(ctx)

			job.Start()
			<-ctx.Done()
			<-job.Stop().Done()

			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "@every 30s", "cron schedule for refreshes")

	return cmd
}

// watchChain skips a refresh while the previous one is still querying.
func watchChain(log *logrus.Entry) []cron.JobWrapper {
	return []cron.JobWrapper{
		cron.SkipIfStillRunning(cronLogger{log: log}),
	}
}

// cronLogger adapts logrus to cron's logger.
type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(cronFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(cronFields(keysAndValues)).Warn(msg)
}

func cronFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

type watcher struct {
	log    *logrus.Entry
	client *timelock.Client
	cache  *lockcache.Cache
}

// tick reports cached locks whose unlock time has passed, then refreshes
// every entry from the chain. Locks that no longer exist are dropped.
func (w *watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	unlocked, err := w.cache.MarkUnlocked(ctx, w.client.Now())
	if err != nil {
		w.log.WithError(err).Warn("failed to mark unlocked locks")
	}
	newlyUnlocked := make(map[string]bool, len(unlocked))
	for _, record := range unlocked {
		newlyUnlocked[string(record.Address)] = true
	}

	records, err := w.cache.List(ctx)
	if err != nil {
		w.log.WithError(err).Warn("failed to list cached locks")
		return
	}

	for _, record := range records {
		log := w.log.WithField("lock", base58.Encode(record.Address))

		info, err := w.client.GetWalletInfo(ctx, record.Address)
		switch {
		case errors.Is(err, timelock.ErrLockNotFound):
			log.Info("lock no longer exists, dropping from cache")
			if err := w.cache.Remove(ctx, record.Address); err != nil {
				log.WithError(err).Warn("failed to remove cached lock")
			}
			continue
		case err != nil:
			log.WithError(err).Warn("failed to refresh lock")
			continue
		}

		if newlyUnlocked[string(record.Address)] && info.IsUnlocked {
			log.WithFields(logrus.Fields{
				"asset":  info.Account.AssetType.String(),
				"amount": info.Account.Amount,
			}).Info("lock is now unlocked")
		}

		updated := record.Clone()
		updated.Amount = info.Account.Amount
		if err := w.cache.Save(ctx, updated); err != nil {
			log.WithError(err).Warn("failed to update cached lock")
		}
	}
}
