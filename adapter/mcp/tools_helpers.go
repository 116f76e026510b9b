package mcp

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return &parsed, nil
}

// parseEndDate makes a date-only upper bound cover the whole day.
func parseEndDate(value string) (*time.Time, error) {
	t, err := parseDate(value)
	if err != nil || t == nil {
		return t, err
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end, nil
}

func parseStatuses(values []string) ([]domain.Status, error) {
	out := make([]domain.Status, 0, len(values))
	for _, v := range values {
		st, err := domain.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func resolveLabels(refs []string) ([]domain.Label, error) {
	out := make([]domain.Label, 0, len(refs))
	for _, ref := range refs {
		l, ok := domain.ResolveLabel(ref)
		if !ok {
			return nil, fmt.Errorf("unknown label %q", ref)
		}
		out = append(out, l)
	}
	return out, nil
}

func labelIDs(labels []domain.Label) []string {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return ids
}
