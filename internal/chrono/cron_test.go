package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

func TestStandardCronRunsJob(t *testing.T) {
	recorder := telemetry.NewRecorder()
	cron := NewStandardCron(recorder, time.UTC)

	ran := make(chan struct{}, 1)
	err := cron.Cron("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
	<-cron.Stop().Done()
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	cron := NewStandardCron(telemetry.NewRecorder(), nil)
	defer cron.Stop()
	require.Error(t, cron.Cron("every now and then", func() {}))
}
