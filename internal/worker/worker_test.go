package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/repository"
	"github.com/bharathmeg/InsightHub/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func popJob(t *testing.T, rdb *redis.Client, queue string) Job {
	t.Helper()
	raw, err := rdb.RPop(context.Background(), queue).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	return job
}

func TestDispatcher_EnqueueExportEmail(t *testing.T) {
	rdb := newRedis(t)
	d := NewDispatcher(rdb)

	require.NoError(t, d.EnqueueExportEmail(context.Background(), ExportEmailPayload{To: "ana@acme.io", Company: "Acme", Format: "csv"}))

	job := popJob(t, rdb, QueueEmail)
	assert.Equal(t, JobExportEmail, job.Type)
	assert.Zero(t, job.Attempts)
	var p ExportEmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, "Acme", p.Company)
}

func enqueueRaw(t *testing.T, rdb *redis.Client, job Job) string {
	t.Helper()
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	return string(raw)
}

func TestPool_SuccessLeavesQueuesEmpty(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	p := NewPool(rdb, 3)
	calls := 0
	p.Handle("ping", func(context.Context, json.RawMessage) error { calls++; return nil })

	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, Job{Type: "ping", Payload: json.RawMessage(`{}`)}))

	assert.Equal(t, 1, calls)
	n, _ := rdb.LLen(ctx, QueueEmail).Result()
	assert.Zero(t, n)
	dlq, _ := rdb.LLen(ctx, DeadLetterKey(QueueEmail)).Result()
	assert.Zero(t, dlq)
}

func TestPool_RetriesThenDeadLetters(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	p := NewPool(rdb, 2)
	p.Handle("flaky", func(context.Context, json.RawMessage) error { return errors.New("smtp down") })

	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, Job{Type: "flaky", Payload: json.RawMessage(`{}`)}))
	requeued := popJob(t, rdb, QueueEmail)
	assert.Equal(t, 1, requeued.Attempts)

	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, requeued))
	n, _ := rdb.LLen(ctx, QueueEmail).Result()
	assert.Zero(t, n)

	letters, err := DeadLetters(ctx, rdb, QueueEmail, 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "flaky", letters[0].Type)
	assert.Equal(t, "smtp down", letters[0].Reason)
	assert.Equal(t, 2, letters[0].Attempts)
	assert.Empty(t, letters[0].Company)
}

func TestPool_DeadLetterCarriesExportMetadata(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	failedAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	p := NewPool(rdb, 1)
	p.now = func() time.Time { return failedAt }
	p.Handle(JobExportEmail, func(context.Context, json.RawMessage) error { return errors.New("smtp down") })

	payload, err := json.Marshal(ExportEmailPayload{To: "ana@acme.io", Company: "Acme", Format: "xlsx"})
	require.NoError(t, err)
	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, Job{Type: JobExportEmail, Payload: payload}))

	letters, err := DeadLetters(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	dl := letters[0]
	assert.Equal(t, QueueEmail, dl.Queue)
	assert.Equal(t, "Acme", dl.Company)
	assert.Equal(t, "ana@acme.io", dl.Recipient)
	assert.Equal(t, "xlsx", dl.Format)
	assert.True(t, failedAt.Equal(dl.FailedAt))
}

func TestDeadLetters_NewestFirstWithLimit(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	p := NewPool(rdb, 1)
	for _, company := range []string{"Acme", "Globex", "Initech"} {
		payload, _ := json.Marshal(ExportEmailPayload{To: "ops@" + company + ".io", Company: company, Format: "csv"})
		p.deadLetter(ctx, QueueEmail, Job{Type: JobExportEmail, Payload: payload}, "smtp down")
	}
	require.NoError(t, rdb.LPush(ctx, DeadLetterKey(QueueEmail), "not json").Err())

	all, err := DeadLetters(ctx, rdb, QueueEmail, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Initech", all[0].Company)

	two, err := DeadLetters(ctx, rdb, QueueEmail, 2)
	require.NoError(t, err)
	// the unreadable entry occupies one of the two slots
	require.Len(t, two, 1)
	assert.Equal(t, "Initech", two[0].Company)
}

func TestPool_PermanentErrorSkipsRetry(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	p := NewPool(rdb, 5)
	p.Handle("bad", func(context.Context, json.RawMessage) error { return ErrPermanent })

	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, Job{Type: "bad"}))

	n, _ := rdb.LLen(ctx, QueueEmail).Result()
	assert.Zero(t, n)
	dlq, _ := rdb.LLen(ctx, DeadLetterKey(QueueEmail)).Result()
	assert.Equal(t, int64(1), dlq)
}

func TestPool_UnknownTypeGoesToDLQ(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	p := NewPool(rdb, 3)

	p.process(ctx, QueueEmail, enqueueRaw(t, rdb, Job{Type: "mystery"}))

	dlq, _ := rdb.LLen(ctx, DeadLetterKey(QueueEmail)).Result()
	assert.Equal(t, int64(1), dlq)
}

func TestPool_StartConsumesQueue(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 1)
	p := NewPool(rdb, 1)
	p.popTimeout = time.Second
	p.Handle("ping", func(context.Context, json.RawMessage) error { done <- struct{}{}; return nil })
	p.Start(ctx, 1)

	require.NoError(t, push(ctx, rdb, QueueEmail, Job{Type: "ping"}))
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not consumed")
	}
}

func TestEmailWorker_MailsRenderedExport(t *testing.T) {
	db := testutil.NewDB(t)
	sales := repository.NewSaleRepository(db)
	require.NoError(t, sales.Create(context.Background(), nil, &model.SaleRecord{
		Company: "Acme", Product: "Widget", Revenue: decimal.RequireFromString("9.99"), Quantity: 3, CreatedAt: time.Now(),
	}))
	mailer := &testutil.FakeMailer{}
	w := NewEmailWorker(sales, mailer, "USD")

	raw, _ := json.Marshal(ExportEmailPayload{To: "ana@acme.io", Company: "Acme", Format: "csv"})
	require.NoError(t, w.Process(context.Background(), raw))

	require.Len(t, mailer.Attachments, 1)
	sent := mailer.Attachments[0]
	assert.Equal(t, "ana@acme.io", sent.To)
	assert.Equal(t, "sales_Acme.csv", sent.Filename)
	assert.Contains(t, string(sent.Data), "Widget,9.99,3")
}

func TestEmailWorker_BadInputIsPermanent(t *testing.T) {
	w := NewEmailWorker(repository.NewSaleRepository(testutil.NewDB(t)), &testutil.FakeMailer{}, "USD")

	err := w.Process(context.Background(), json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrPermanent)

	err = w.Deliver(context.Background(), ExportEmailPayload{To: "a@b.c", Company: "Acme", Format: "docx"})
	assert.ErrorIs(t, err, ErrPermanent)

	err = w.Deliver(context.Background(), ExportEmailPayload{Company: "Acme", Format: "csv"})
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEmailWorker_SendFailureIsRetryable(t *testing.T) {
	mailer := &testutil.FakeMailer{Err: errors.New("smtp down")}
	w := NewEmailWorker(repository.NewSaleRepository(testutil.NewDB(t)), mailer, "USD")

	err := w.Deliver(context.Background(), ExportEmailPayload{To: "a@b.c", Company: "Acme", Format: "csv"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
}
