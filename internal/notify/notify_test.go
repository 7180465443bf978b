package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/lock"
	"github.com/noah-isme/banner-pricing/internal/order"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/pricing"
	"github.com/noah-isme/banner-pricing/internal/quote"
	"github.com/noah-isme/banner-pricing/internal/resilience"
)

func testOrder() order.Order {
	id := uuid.MustParse("8d3e6a2c-1111-4c1e-9b7a-000000000001")
	return order.Order{
		ID:             id,
		Number:         order.NumberFor(id),
		Email:          "pat@example.com",
		CustomerName:   "Pat Lee",
		Region:         "us",
		TaxRate:        decimal.RequireFromString("0.06"),
		CatalogVersion: "2026-10-01",
		Subtotal:       13800,
		Tax:            828,
		Total:          14628,
		CreatedAt:      time.Date(2026, 10, 2, 15, 0, 0, 0, time.UTC),
		Items: []order.Item{{
			ID: uuid.New(), Title: "Grand opening", Width: decimal.NewFromInt(24), Height: decimal.NewFromInt(36),
			Quantity: 3, Material: "vinyl_13oz", Options: []string{"pole_pocket_top"},
		}},
	}
}

func quoteService(t *testing.T) *quote.Service {
	t.Helper()
	def, err := catalog.LoadFile("../../catalog.yaml")
	require.NoError(t, err)
	cat, err := catalog.Build(def)
	require.NoError(t, err)
	svc, err := quote.NewService(quote.ServiceConfig{
		Holder:       catalog.NewStaticHolder(cat),
		Flags:        flags.NewProvider("us", nil, nil),
		TaxRate:      decimal.RequireFromString("0.06"),
		MinimumOrder: pricing.DefaultMinimumOrder,
		Formatter:    present.MustFormatter("USD", "$", "en-US"),
	})
	require.NoError(t, err)
	return svc
}

// staticPricer prices testOrder through the real quote path.
type staticPricer struct {
	t      *testing.T
	quotes *quote.Service
	order  order.Order
	err    error
	calls  []string
}

func (p *staticPricer) Reprice(ctx context.Context, surface string, id uuid.UUID) (order.Order, present.QuoteView, error) {
	p.calls = append(p.calls, surface)
	if p.err != nil {
		return order.Order{}, present.QuoteView{}, p.err
	}
	if id != p.order.ID {
		return order.Order{}, present.QuoteView{}, common.NotFound("order not found")
	}
	view, err := p.quotes.PriceVersion(ctx, surface, p.order.CatalogVersion, p.order.Context(), p.order.TaxRate, p.order.LineItems())
	if err != nil {
		return order.Order{}, present.QuoteView{}, err
	}
	view.Items[0].Title = p.order.Items[0].Title
	return p.order, view, nil
}

func TestRendererConfirmation(t *testing.T) {
	o := testOrder()
	p := &staticPricer{t: t, quotes: quoteService(t), order: o}
	_, view, err := p.Reprice(context.Background(), quote.SurfaceEmail, o.ID)
	require.NoError(t, err)

	r, err := NewRenderer("Questions? [Contact us](https://example.com/help)<script>alert(1)</script>")
	require.NoError(t, err)
	msg, err := r.Confirmation(o, view)
	require.NoError(t, err)

	require.Equal(t, "pat@example.com", msg.To)
	require.Equal(t, "Order "+o.Number+" confirmed: $146.28", msg.Subject)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
	require.NoError(t, err)
	require.Equal(t, o.Number, doc.Find("#order-number").Text())

	item := doc.Find("table.item").First()
	require.Equal(t, 2, item.Find("tr.line").Length())
	require.Equal(t, "$81.00", strings.TrimSpace(item.Find("tr.line-base td.amount").Text()))
	require.Equal(t, "$57.00", strings.TrimSpace(item.Find(`tr[data-id="pole_pocket_top"] td.amount`).Text()))
	require.Equal(t, "$46.00", strings.TrimSpace(item.Find("td.unit-price").Text()))
	require.Equal(t, "$138.00", strings.TrimSpace(item.Find("td.line-total").Text()))
	require.Contains(t, item.Find("caption").Text(), "Grand opening")

	require.Equal(t, "$138.00", doc.Find("#totals td.subtotal").Text())
	require.Equal(t, "$8.28", doc.Find("#totals td.tax").Text())
	require.Equal(t, "$146.28", strings.TrimSpace(doc.Find("#totals td.total").Text()))
	require.Equal(t, 0, doc.Find("#minimum-notice").Length())

	footer := doc.Find("#footer")
	href, ok := footer.Find("a").Attr("href")
	require.True(t, ok)
	require.Equal(t, "https://example.com/help", href)
	require.Equal(t, 0, footer.Find("script").Length())
	require.NotContains(t, msg.HTML, "alert(1)")

	require.Contains(t, msg.Text, "Total: $146.28")
	require.Contains(t, msg.Text, "Pole Pocket (top): $19.00 x 3 = $57.00")
}

func TestRendererWithoutFooter(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)
	msg, err := r.Confirmation(testOrder(), present.QuoteView{Totals: present.TotalsView{Total: "$0.00"}})
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find("#footer").Length())
	require.Equal(t, 0, doc.Find("table.item").Length())
}

func newHandler(t *testing.T, pricer OrderPricer, sender Sender) (*ConfirmationHandler, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r, err := NewRenderer("")
	require.NoError(t, err)
	return &ConfirmationHandler{
		Orders:   pricer,
		Renderer: r,
		Sender:   sender,
		Locker:   lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, MaxWait: 50 * time.Millisecond},
		LockTTL:  time.Second,
		Logger:   zerolog.Nop(),
	}, mr
}

func confirmationTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(confirmationPayload{OrderID: id})
	require.NoError(t, err)
	return asynq.NewTask(TaskOrderConfirmation, payload)
}

func TestConfirmationHandlerSends(t *testing.T) {
	o := testOrder()
	pricer := &staticPricer{t: t, quotes: quoteService(t), order: o}
	sender := &InMemorySender{}
	h, mr := newHandler(t, pricer, sender)

	require.NoError(t, h.ProcessTask(context.Background(), confirmationTask(t, o.ID)))
	require.Equal(t, []string{quote.SurfaceEmail}, pricer.calls)
	outbox := sender.Outbox()
	require.Len(t, outbox, 1)
	require.Equal(t, "pat@example.com", outbox[0].To)
	require.Contains(t, outbox[0].HTML, "$146.28")
	require.False(t, mr.Exists(lock.Key("confirmation", o.ID.String())))
}

func TestConfirmationHandlerSkipsPermanentFailures(t *testing.T) {
	o := testOrder()
	sender := &InMemorySender{}
	h, _ := newHandler(t, &staticPricer{t: t, quotes: quoteService(t), order: o}, sender)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskOrderConfirmation, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), confirmationTask(t, uuid.New()))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, sender.Outbox())
}

type failingSender struct{ err error }

func (f failingSender) Send(context.Context, Message) error { return f.err }

func TestConfirmationHandlerRetriesTransientFailures(t *testing.T) {
	o := testOrder()
	h, _ := newHandler(t, &staticPricer{t: t, quotes: quoteService(t), order: o}, failingSender{err: errors.New("connection reset")})

	err := h.ProcessTask(context.Background(), confirmationTask(t, o.ID))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)

	h.Sender = failingSender{err: &RejectedError{StatusCode: http.StatusUnprocessableEntity, Body: "invalid to"}}
	err = h.ProcessTask(context.Background(), confirmationTask(t, o.ID))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestConfirmationHandlerWaitsForLock(t *testing.T) {
	o := testOrder()
	sender := &InMemorySender{}
	h, mr := newHandler(t, &staticPricer{t: t, quotes: quoteService(t), order: o}, sender)
	require.NoError(t, mr.Set(lock.Key("confirmation", o.ID.String()), "other-worker"))

	err := h.ProcessTask(context.Background(), confirmationTask(t, o.ID))
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, sender.Outbox())
}

type recordingClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (c *recordingClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	c.opts = append(c.opts, opts)
	return &asynq.TaskInfo{ID: "1", Queue: QueueEmail, Type: task.Type()}, nil
}

func TestEnqueuerBuildsConfirmationTask(t *testing.T) {
	client := &recordingClient{}
	e := Enqueuer{Client: client, MaxRetry: 5, Timeout: time.Minute}
	id := uuid.New()

	require.NoError(t, e.EnqueueConfirmation(context.Background(), id))
	require.Len(t, client.tasks, 1)
	require.Equal(t, TaskOrderConfirmation, client.tasks[0].Type())
	require.JSONEq(t, `{"order_id":"`+id.String()+`"}`, string(client.tasks[0].Payload()))
	require.Len(t, client.opts[0], 3)

	require.Error(t, Enqueuer{}.EnqueueConfirmation(context.Background(), id))
}

func TestResendSender(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To[0] == "bounce@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"invalid recipient"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	s := ResendSender{
		HTTP:    resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond},
		BaseURL: srv.URL + "/",
		APIKey:  "re_test",
		From:    "orders@example.com",
	}
	require.NoError(t, s.Send(context.Background(), Message{To: "pat@example.com", Subject: "hi", HTML: "<p>hi</p>"}))
	require.Equal(t, "orders@example.com", got.From)
	require.Equal(t, "hi", got.Subject)

	err := s.Send(context.Background(), Message{To: "bounce@example.com"})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
	require.Contains(t, rejected.Body, "invalid recipient")
}
