package ingest

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"storyhub/pkg/logger"
)

// cronLogger adapts logrus to the cron.Logger interface.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(kv(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.entry.WithError(err).WithFields(kv(keysAndValues)).Error(msg)
}

func kv(pairs []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(pairs); i += 2 {
		f[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return f
}

// Schedule runs Import on the cron spec (standard five fields or descriptors
// like "@every 30m") until ctx is done. Overlapping runs are skipped.
func Schedule(ctx context.Context, spec string, svc *Service, agg *Aggregator) error {
	log := cronLogger{entry: logger.Module("ingest.cron")}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	_, err := c.AddFunc(spec, func() {
		if _, err := svc.Import(ctx, agg); err != nil {
			log.Error(err, "scheduled import failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
