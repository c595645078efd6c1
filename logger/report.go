package logger

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	errorsFetch    int64
	errorsNotify   int64
	warnsFetch     int64
	warnsNotify    int64
	chainFetches   int64
	historyFetches int64
	alertsSent     int64
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") || strings.Contains(component, "session") {
		atomic.AddInt64(&warnsFetch, 1)
	} else if strings.Contains(component, "notifier") {
		atomic.AddInt64(&warnsNotify, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") || strings.Contains(component, "session") {
		atomic.AddInt64(&errorsFetch, 1)
	} else if strings.Contains(component, "notifier") {
		atomic.AddInt64(&errorsNotify, 1)
	}
}

func IncrementChainFetch() {
	atomic.AddInt64(&chainFetches, 1)
}

func IncrementHistoryFetch() {
	atomic.AddInt64(&historyFetches, 1)
}

func IncrementAlertSent() {
	atomic.AddInt64(&alertsSent, 1)
}

// WriteRunReport logs aggregate counters for the finished invocation and
// forwards them to CloudWatch when configured.
func WriteRunReport(ctx context.Context, log *Log) {
	fields := Fields{
		"errors_fetch":    atomic.LoadInt64(&errorsFetch),
		"errors_notify":   atomic.LoadInt64(&errorsNotify),
		"warns_fetch":     atomic.LoadInt64(&warnsFetch),
		"warns_notify":    atomic.LoadInt64(&warnsNotify),
		"chain_fetches":   atomic.LoadInt64(&chainFetches),
		"history_fetches": atomic.LoadInt64(&historyFetches),
		"alerts_sent":     atomic.LoadInt64(&alertsSent),
	}

	log.WithComponent("report").WithFields(fields).Info("run report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		{MetricName: aws.String("ErrorsNotify"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_notify"].(int64)))},
		{MetricName: aws.String("ChainFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["chain_fetches"].(int64)))},
		{MetricName: aws.String("HistoryFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["history_fetches"].(int64)))},
		{MetricName: aws.String("AlertsSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["alerts_sent"].(int64)))},
	}
	publishMetrics(ctx, data)
}
