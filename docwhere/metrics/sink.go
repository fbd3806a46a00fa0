package metrics

// Warner is the warning sink the compiler reports degradations to
type Warner interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Sink counts degradations and forwards every warning to Next
type Sink struct {
	Metrics *Metrics
	Next    Warner
}

func (s Sink) Warn(msg string, err error, fields ...map[string]interface{}) {
	if s.Metrics != nil {
		reason := "unknown"
		for _, f := range fields {
			if r, ok := f["reason"].(string); ok && r != "" {
				reason = r
			}
		}
		s.Metrics.Degradations.WithLabelValues(reason).Inc()
	}
	if s.Next != nil {
		s.Next.Warn(msg, err, fields...)
	}
}
