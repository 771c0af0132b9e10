// Package dispatch sends outreach mail to pending leads under the daily
// quota, with fixed pacing between attempts.
package dispatch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logimarket/leadflow/internal/lead"
	"github.com/logimarket/leadflow/internal/metrics"
)

const (
	defaultDailyQuota   = 300
	defaultPaceInterval = 3 * time.Second

	// Operator overrides for the built-in template, stored in the repository.
	settingSubjectKey = "outreach.subject"
	settingBodyKey    = "outreach.body"

	companyToken = "{company}"

	sentTopic   = "lead.sent"
	failedTopic = "lead.failed"
)

const (
	defaultSubject = "【ご案内】荷主と運送会社のマッチングサービスについて"
	defaultBody    = `{company} ご担当者様

突然のご連絡失礼いたします。
荷主企業と運送会社をつなぐマッチングサービスを運営しております。

貴社の空車情報を掲載いただくことで、新たな荷主からの
お問い合わせにつながります。掲載は無料です。

ご興味をお持ちいただけましたら、本メールにご返信ください。
`
)

// Config controls dispatch behavior.
type Config struct {
	DailyQuota int
	// PaceInterval is the pause after every attempted send, success or
	// failure. It is the primary protection against the mail provider
	// rate-limiting or flagging the sending account.
	PaceInterval time.Duration
	// Timezone fixes the civil day boundary for quota accounting.
	Timezone *time.Location
}

// Dispatcher runs the daily outbound send loop, strictly sequentially.
type Dispatcher struct {
	repo      lead.Repository
	mail      lead.MailSender
	clock     lead.Clock
	publisher lead.Publisher
	logger    *zap.Logger
	cfg       Config
}

// New constructs a Dispatcher. publisher may be nil.
func New(
	repo lead.Repository,
	mail lead.MailSender,
	clock lead.Clock,
	publisher lead.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.DailyQuota <= 0 {
		cfg.DailyQuota = defaultDailyQuota
	}
	if cfg.PaceInterval <= 0 {
		cfg.PaceInterval = defaultPaceInterval
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Dispatcher{
		repo:      repo,
		mail:      mail,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// RunDaily sends to as many new-status leads as the remaining daily quota
// allows. Quota exhaustion is a defined terminal state, not an error.
func (d *Dispatcher) RunDaily(ctx context.Context) lead.DispatchResult {
	var result lead.DispatchResult

	now := d.clock.Now().In(d.cfg.Timezone)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.cfg.Timezone)

	sentToday, err := d.repo.CountSentSince(ctx, startOfDay)
	if err != nil {
		d.logger.Error("count sent today failed", zap.Error(err))
		return result
	}
	remaining := d.cfg.DailyQuota - sentToday
	if remaining <= 0 {
		d.logger.Info("daily quota exhausted", zap.Int("sent_today", sentToday))
		return result
	}

	subject, body := d.loadTemplate(ctx)

	pending, err := d.repo.ListByStatus(ctx, lead.StatusNew, remaining)
	if err != nil {
		d.logger.Error("list pending leads failed", zap.Error(err))
		return result
	}

	for _, l := range pending {
		if l.Email == "" {
			continue
		}
		if ctx.Err() != nil {
			return result
		}
		if d.send(ctx, l, subject, body) {
			result.Sent++
		} else {
			result.Failed++
		}
		d.pause(ctx)
	}

	metrics.RecordDispatchRun()
	d.logger.Info("dispatch run finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("remaining_quota", remaining-result.Sent-result.Failed),
	)
	return result
}

// send attempts one outreach mail and records the outcome. Never retries.
func (d *Dispatcher) send(ctx context.Context, l lead.Lead, subject, body string) bool {
	personalSubject := strings.ReplaceAll(subject, companyToken, l.CompanyName)
	personalBody := strings.ReplaceAll(body, companyToken, l.CompanyName)

	sendErr := d.mail.Send(ctx, l.Email, personalSubject, personalBody)

	outcome := lead.SendOutcome{
		Status:  lead.StatusSent,
		SentAt:  d.clock.Now(),
		Subject: personalSubject,
	}
	topic := sentTopic
	if sendErr != nil {
		outcome.Status = lead.StatusFailed
		topic = failedTopic
		d.logger.Error("outreach send failed",
			zap.String("lead_id", l.ID),
			zap.String("email", l.Email),
			zap.Error(sendErr),
		)
	}

	if err := d.repo.RecordOutcome(ctx, l.ID, outcome); err != nil {
		d.logger.Error("record outcome failed", zap.String("lead_id", l.ID), zap.Error(err))
	}
	metrics.RecordOutboundEmail(string(outcome.Status))
	d.publish(ctx, topic, l, personalSubject)

	return sendErr == nil
}

func (d *Dispatcher) loadTemplate(ctx context.Context) (string, string) {
	subject := defaultSubject
	if s, err := d.repo.GetSetting(ctx, settingSubjectKey); err != nil {
		d.logger.Warn("load subject setting failed", zap.Error(err))
	} else if s != "" {
		subject = s
	}
	body := defaultBody
	if b, err := d.repo.GetSetting(ctx, settingBodyKey); err != nil {
		d.logger.Warn("load body setting failed", zap.Error(err))
	} else if b != "" {
		body = b
	}
	return subject, body
}

// pause sleeps for the configured interval after an attempted send,
// unconditionally. Returns early only on context cancellation.
func (d *Dispatcher) pause(ctx context.Context) {
	t := time.NewTimer(d.cfg.PaceInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (d *Dispatcher) publish(ctx context.Context, topic string, l lead.Lead, subject string) {
	if d.publisher == nil {
		return
	}
	payload := map[string]any{
		"lead_id": l.ID,
		"email":   l.Email,
		"subject": subject,
	}
	if _, err := d.publisher.Publish(ctx, topic, payload); err != nil {
		d.logger.Warn("lead event publish failed", zap.String("lead_id", l.ID), zap.Error(err))
	}
}
