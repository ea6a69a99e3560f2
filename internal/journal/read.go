package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Resolution is one row of the resolutions table.
type Resolution struct {
	Seq       int64         `json:"seq"`
	Origin    []string      `json:"origin"`
	Nodes     int           `json:"nodes"`
	Passes    int           `json:"passes"`
	Duration  time.Duration `json:"duration_ns"`
	ErrorCode string        `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Delivery is one row of the deliveries table.
type Delivery struct {
	Seq      int64  `json:"seq"`
	ActionID string `json:"action_id"`
	Type     string `json:"type"`
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// Resolutions returns all resolution rows ordered by seq. The result is
// empty, not nil, when there are none.
func (j *Journal) Resolutions(ctx context.Context) ([]Resolution, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, origin, nodes, passes, duration_ns, error_code, error
		FROM resolutions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		var (
			r      Resolution
			origin string
			nanos  int64
		)
		if err := rows.Scan(&r.Seq, &origin, &r.Nodes, &r.Passes, &nanos, &r.ErrorCode, &r.Error); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		if origin != "" {
			r.Origin = strings.Split(origin, ",")
		}
		r.Duration = time.Duration(nanos)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

// Deliveries returns all delivery rows ordered by seq.
func (j *Journal) Deliveries(ctx context.Context) ([]Delivery, error) {
	return j.queryDeliveries(ctx, `
		SELECT seq, action_id, type, src, dst, outcome, error
		FROM deliveries
		ORDER BY seq ASC
	`)
}

// DeliveriesFor returns the delivery rows of one posted action.
func (j *Journal) DeliveriesFor(ctx context.Context, actionID string) ([]Delivery, error) {
	return j.queryDeliveries(ctx, `
		SELECT seq, action_id, type, src, dst, outcome, error
		FROM deliveries
		WHERE action_id = ?
		ORDER BY seq ASC
	`, actionID)
}

func (j *Journal) queryDeliveries(ctx context.Context, query string, args ...any) ([]Delivery, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.Seq, &d.ActionID, &d.Type, &d.Src, &d.Dst, &d.Outcome, &d.Error); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}
