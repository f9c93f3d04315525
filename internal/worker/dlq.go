package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DeadLetter is a job the pool gave up on. Company, Recipient and Format are
// lifted from export mail payloads so an operator can tell who never got
// their file without decoding Payload.
type DeadLetter struct {
	Queue     string          `json:"queue"`
	Type      string          `json:"type"`
	Company   string          `json:"company,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Format    string          `json:"format,omitempty"`
	Attempts  int             `json:"attempts"`
	Reason    string          `json:"reason"`
	FailedAt  time.Time       `json:"failed_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DeadLetterKey is the Redis list holding dead letters for queue.
func DeadLetterKey(queue string) string { return "dlq:" + queue }

func newDeadLetter(queue string, job Job, reason string, at time.Time) DeadLetter {
	dl := DeadLetter{
		Queue:    queue,
		Type:     job.Type,
		Attempts: job.Attempts,
		Reason:   reason,
		FailedAt: at.UTC(),
		Payload:  job.Payload,
	}
	if job.Type == JobExportEmail {
		var p ExportEmailPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			dl.Company, dl.Recipient, dl.Format = p.Company, p.To, p.Format
		}
	}
	return dl
}

// deadLetter parks job for manual inspection. Failures are logged only:
// the job is already lost to the live queue.
func (p *Pool) deadLetter(ctx context.Context, queue string, job Job, reason string) {
	dl := newDeadLetter(queue, job, reason, p.now())
	data, err := json.Marshal(dl)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	if err := p.rdb.LPush(ctx, DeadLetterKey(queue), data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("company", dl.Company).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("company", dl.Company).
		Str("recipient", dl.Recipient).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("job moved to dead letter queue")
}

// DeadLetters returns up to limit entries for queue, newest first.
// A limit <= 0 returns all of them.
func DeadLetters(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]DeadLetter, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}
	raws, err := rdb.LRange(ctx, DeadLetterKey(queue), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: skipping unreadable entry")
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}
