package channel

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
)

// Runner executes one AppleScript program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// OsascriptRunner runs scripts through the osascript binary.
type OsascriptRunner struct {
	Path string
}

func (r OsascriptRunner) Run(ctx context.Context, script string) (string, error) {
	path := r.Path
	if path == "" {
		path = "osascript"
	}
	cmd := exec.CommandContext(ctx, path, "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// AppleScriptChannel drives the macOS Messages app. Services are tried in
// order; the first one that accepts the text wins.
type AppleScriptChannel struct {
	Runner       Runner
	Services     []string
	ConfirmDelay time.Duration
	TempDir      string
	Logger       *zap.Logger
}

func NewAppleScriptChannel(runner Runner, services []string, confirmDelay time.Duration, logger *zap.Logger) *AppleScriptChannel {
	if len(services) == 0 {
		services = []string{"iMessage"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppleScriptChannel{
		Runner:       runner,
		Services:     services,
		ConfirmDelay: confirmDelay,
		Logger:       logger,
	}
}

// Send tries each service in turn. Once a text has gone out the message counts
// as delivered, even if ctx ends during the image or the confirmation wait.
func (c *AppleScriptChannel) Send(ctx context.Context, msg Message) (Delivery, error) {
	text := ComposeText(msg.Name, msg.Body, msg.TrackingLink)

	var lastErr error
	for _, service := range c.Services {
		if err := ctx.Err(); err != nil {
			return Delivery{}, c.failure(service, msg.Phone, err)
		}

		log := c.Logger.With(zap.String("service", service), zap.String("phone", msg.Phone))
		if _, err := c.Runner.Run(ctx, textScript(msg.Phone, service, text)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Delivery{}, c.failure(service, msg.Phone, fmt.Errorf("%v: %w", err, ctxErr))
			}
			log.Warn("text send failed", zap.Error(err))
			lastErr = err
			continue
		}
		status := fmt.Sprintf("Text message sent to %s at %s via %s", msg.Name, msg.Phone, service)

		if len(msg.Image) > 0 {
			path, err := c.writeImage(msg.Image)
			if err != nil {
				return Delivery{}, c.failure(service, msg.Phone, fmt.Errorf("text sent but image could not be staged: %w", err))
			}
			// removed once the confirmation delay is over
			defer os.Remove(path)
			if _, err := c.Runner.Run(ctx, imageScript(msg.Phone, service, path)); err != nil {
				if ctx.Err() != nil {
					log.Warn("image send interrupted", zap.Error(err))
					return Delivery{Channel: service, Status: status + ", image interrupted"}, nil
				}
				log.Warn("image send failed", zap.Error(err))
				return Delivery{}, c.failure(service, msg.Phone, fmt.Errorf("text sent but image failed: %w", err))
			}
			status += " and image sent"
		}

		if err := c.awaitConfirmation(ctx); err != nil {
			log.Warn("confirmation wait interrupted", zap.Error(err))
			return Delivery{Channel: service, Status: status}, nil
		}

		log.Info("message delivered")
		return Delivery{Channel: service, Status: status}, nil
	}

	return Delivery{}, c.failure(strings.Join(c.Services, "/"), msg.Phone, lastErr)
}

// LatestResponse reads the last message of the conversation with phone on the
// primary service.
func (c *AppleScriptChannel) LatestResponse(ctx context.Context, phone string) (Reply, error) {
	service := c.Services[0]
	out, err := c.Runner.Run(ctx, latestMessageScript(phone, service))
	if err != nil {
		return Reply{}, &appErrors.ChannelError{Channel: service, Op: "read responses", Phone: phone, Err: err}
	}

	// first line is the date, the rest is the message text
	out = strings.TrimRight(out, "\r\n")
	date, text, ok := strings.Cut(out, "\n")
	if !ok {
		return Reply{}, &appErrors.ChannelError{Channel: service, Op: "read responses", Phone: phone, Detail: fmt.Sprintf("unexpected script output %q", out)}
	}
	return Reply{Text: text, ReceivedAt: strings.TrimSpace(date)}, nil
}

// awaitConfirmation gives Messages time to hand the message off before the
// next send is allowed.
func (c *AppleScriptChannel) awaitConfirmation(ctx context.Context) error {
	if c.ConfirmDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.ConfirmDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *AppleScriptChannel) writeImage(data []byte) (string, error) {
	f, err := os.CreateTemp(c.TempDir, "campaign-image-*"+imageExt(data))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (c *AppleScriptChannel) failure(service, phone string, err error) error {
	return &appErrors.ChannelError{Channel: service, Phone: phone, Err: err}
}

func imageExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".img"
}

func textScript(phone, service, text string) string {
	return fmt.Sprintf(`tell application "Messages"
	set targetBuddy to "%s"
	set targetService to id of 1st service whose service type = %s
	set textMessage to "%s"
	set theBuddy to participant targetBuddy of account id targetService
	send textMessage to theBuddy
end tell`, quote(phone), service, quote(text))
}

func imageScript(phone, service, path string) string {
	return fmt.Sprintf(`tell application "Messages"
	set targetBuddy to "%s"
	set targetService to id of 1st service whose service type = %s
	set theBuddy to participant targetBuddy of account id targetService
	send POSIX file "%s" to theBuddy
end tell`, quote(phone), service, quote(path))
}

func latestMessageScript(phone, service string) string {
	return fmt.Sprintf(`tell application "Messages"
	set targetBuddy to "%s"
	set targetService to id of 1st service whose service type = %s
	set theBuddy to participant targetBuddy of account id targetService
	set theChat to chat of theBuddy
	set latestMessage to item -1 of (messages of theChat)
	return ((date received of latestMessage) as string) & linefeed & (content of latestMessage)
end tell`, quote(phone), service)
}

// quote escapes s for use inside an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

var (
	_ Channel        = (*AppleScriptChannel)(nil)
	_ ResponseReader = (*AppleScriptChannel)(nil)
)
