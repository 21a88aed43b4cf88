package forecast

import (
	"sort"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

// ResampleHourlyMax buckets transactions by hour and keeps the highest priority
// fee of each bucket. Transactions whose priority fee is still unknown are
// skipped and hours without any known fee produce no sample.
func ResampleHourlyMax(txs []model.Transaction) []Sample {
	maxByHour := make(map[int64]int64)
	for _, tx := range txs {
		if tx.PriorityFee == nil {
			continue
		}
		hour := model.HourBucket(tx.Timestamp)
		if cur, ok := maxByHour[hour]; !ok || *tx.PriorityFee > cur {
			maxByHour[hour] = *tx.PriorityFee
		}
	}

	samples := make([]Sample, 0, len(maxByHour))
	for hour, v := range maxByHour {
		samples = append(samples, Sample{Hour: hour, Value: v})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Hour < samples[j].Hour })
	return samples
}

// predictionHours lists every sampled hour followed by horizon hours after the
// newest sample.
func predictionHours(samples []Sample, horizon int) []int64 {
	hours := make([]int64, 0, len(samples)+horizon)
	for _, s := range samples {
		hours = append(hours, s.Hour)
	}
	if len(samples) == 0 {
		return hours
	}
	last := samples[len(samples)-1].Hour
	for i := 1; i <= horizon; i++ {
		hours = append(hours, last+int64(i)*model.SecondsPerHour)
	}
	return hours
}
