package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvelope_TopicKeying(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name             string
		topic            Topic
		wantLineID       string
		wantJobID        string
		wantEscalationID string
	}{
		{
			name:       "line-scoped event",
			topic:      Topic{Category: CategoryOee, Target: "line-001"},
			wantLineID: "line-001",
		},
		{
			name:      "job-scoped event",
			topic:     Topic{Category: CategoryJob, Target: "job-42"},
			wantJobID: "job-42",
		},
		{
			name:             "escalation-scoped event",
			topic:            Topic{Category: CategoryEscalation, Target: "esc-9"},
			wantEscalationID: "esc-9",
		},
		{
			name:  "system event carries no target field",
			topic: Topic{Category: CategorySystem, Target: TargetGlobal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnvelope(EventOeeUpdate, tt.topic, nil, now)
			assert.Equal(t, tt.wantLineID, env.LineID)
			assert.Equal(t, tt.wantJobID, env.JobID)
			assert.Equal(t, tt.wantEscalationID, env.EscalationID)
			assert.Equal(t, now, env.Timestamp)
		})
	}
}

func TestTopicString(t *testing.T) {
	assert.Equal(t, "andon:line-002", Topic{Category: CategoryAndon, Target: "line-002"}.String())
}
