package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/httpretry"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Notifier delivers one alert over one channel.
type Notifier interface {
	Channel() domain.NotificationChannel
	Send(ctx context.Context, alert domain.Alert) error
}

// BuildNotifiers assembles the notifiers for the configured channel list.
// Unconfigured channels are skipped with a warning rather than failing
// startup: delivery is best-effort by design.
func BuildNotifiers(ctx context.Context, cfg appconfig.NotificationsConfig) []Notifier {
	var notifiers []Notifier
	for _, name := range cfg.Channels {
		switch domain.NotificationChannel(name) {
		case domain.ChannelEmail:
			if !cfg.Email.Enabled {
				logger.Warn("email channel configured but disabled")
				continue
			}
			n, err := NewEmailNotifier(ctx, cfg.Email)
			if err != nil {
				logger.Error("email notifier init failed", "error", err.Error())
				continue
			}
			notifiers = append(notifiers, n)
		case domain.ChannelSlack:
			if !cfg.Slack.Enabled || cfg.Slack.WebhookURL == "" {
				logger.Warn("slack channel configured but disabled")
				continue
			}
			notifiers = append(notifiers, NewSlackNotifier(cfg.Slack))
		case domain.ChannelSMS:
			notifiers = append(notifiers, NewSMSNotifier(cfg.SMS))
		default:
			logger.Warn("unknown notification channel", "channel", name)
		}
	}
	return notifiers
}

// EmailNotifier sends alert emails through AWS SES v2.
type EmailNotifier struct {
	client *sesv2.Client
	from   string
	to     []string
}

// NewEmailNotifier creates an SES-backed email notifier.
func NewEmailNotifier(ctx context.Context, cfg appconfig.EmailChannelConfig) (*EmailNotifier, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &EmailNotifier{
		client: sesv2.NewFromConfig(awsCfg),
		from:   cfg.From,
		to:     cfg.To,
	}, nil
}

// Channel identifies this notifier.
func (n *EmailNotifier) Channel() domain.NotificationChannel { return domain.ChannelEmail }

// Send delivers the alert email.
func (n *EmailNotifier) Send(ctx context.Context, alert domain.Alert) error {
	subject := fmt.Sprintf("[%s] %s — customer %s", strings.ToUpper(string(alert.Severity)), alert.Type, alert.CustomerID)
	body := formatAlertBody(alert)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: n.to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     httpretry.HTTPDoer
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(cfg appconfig.SlackChannelConfig) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		client:     httpretry.NewRetryClient(&http.Client{Timeout: 10 * time.Second}, 2),
	}
}

// Channel identifies this notifier.
func (n *SlackNotifier) Channel() domain.NotificationChannel { return domain.ChannelSlack }

// Send posts the alert to the webhook.
func (n *SlackNotifier) Send(ctx context.Context, alert domain.Alert) error {
	payload := map[string]string{
		"text": fmt.Sprintf(":rotating_light: *%s* (%s) — customer `%s`\n%s",
			alert.Type, alert.Severity, alert.CustomerID, alert.Description),
	}
	if n.channel != "" {
		payload["channel"] = n.channel
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

// SMSNotifier delivers over an SMS gateway. Without a provider URL it
// logs the would-be message instead of sending.
type SMSNotifier struct {
	providerURL string
	apiKey      string
	to          []string
	client      httpretry.HTTPDoer
}

// NewSMSNotifier creates an SMS notifier.
func NewSMSNotifier(cfg appconfig.SMSChannelConfig) *SMSNotifier {
	return &SMSNotifier{
		providerURL: cfg.ProviderURL,
		apiKey:      cfg.APIKey,
		to:          cfg.To,
		client:      httpretry.NewRetryClient(&http.Client{Timeout: 10 * time.Second}, 2),
	}
}

// Channel identifies this notifier.
func (n *SMSNotifier) Channel() domain.NotificationChannel { return domain.ChannelSMS }

// Send delivers the alert as a short text.
func (n *SMSNotifier) Send(ctx context.Context, alert domain.Alert) error {
	text := fmt.Sprintf("%s alert (%s) customer %s", alert.Type, alert.Severity, alert.CustomerID)
	if n.providerURL == "" {
		logger.Info("sms gateway not configured, skipping", "alert_id", alert.AlertID, "text", text)
		return nil
	}

	body, _ := json.Marshal(map[string]interface{}{
		"to":      n.to,
		"message": text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.providerURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}

func formatAlertBody(alert domain.Alert) string {
	keys := make([]string, 0, len(alert.Metrics))
	for k := range alert.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var metrics strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&metrics, "  %s: %.4f\n", k, alert.Metrics[k])
	}

	return fmt.Sprintf(`Customer Intelligence Alert
===========================

Customer:   %s
Type:       %s
Severity:   %s
Status:     %s
Created:    %s

%s

Metrics:
%s
---
This is an automated alert from the customer intelligence pipeline.
`,
		alert.CustomerID, alert.Type, alert.Severity, alert.Status,
		alert.CreatedAt.Format(time.RFC3339),
		alert.Description,
		metrics.String(),
	)
}
