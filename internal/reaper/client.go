// Package reaper talks to REAPER's built-in web interface. Every request is
// a GET on /_/<command>; responses are newline separated records with tab
// separated fields.
package reaper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/setlistd/internal/daw"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Action command ids understood by the web interface.
const (
	CommandPlay  = "1007"
	CommandPause = "1008"
	CommandStop  = "1016"
)

// DefaultTimeout bounds a single web request.
const DefaultTimeout = 2 * time.Second

const maxResponseBytes = 1 << 20

// Client is a daw.Client backed by REAPER's web interface.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	countInCommand string
	logger         *slog.Logger
	tracer         trace.Tracer
}

var _ daw.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithCountInCommand sets the action used for "play with pre-roll". It
// defaults to plain play.
func WithCountInCommand(cmd string) Option {
	return func(c *Client) {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			c.countInCommand = cmd
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the web interface at baseURL, e.g.
// "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		countInCommand: CommandPlay,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         otel.Tracer("github.com/rpggio/setlistd/internal/reaper"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TransportState fetches the play state and cursor position.
func (c *Client) TransportState(ctx context.Context) (daw.TransportSnapshot, error) {
	lines, err := c.do(ctx, "TRANSPORT")
	if err != nil {
		return daw.TransportSnapshot{}, err
	}
	fields, err := record(lines, "TRANSPORT", 3)
	if err != nil {
		return daw.TransportSnapshot{}, err
	}
	state, err := strconv.Atoi(fields[1])
	if err != nil {
		return daw.TransportSnapshot{}, malformed("TRANSPORT", err)
	}
	pos, err := parseFloat(fields[2])
	if err != nil {
		return daw.TransportSnapshot{}, malformed("TRANSPORT", err)
	}
	return daw.TransportSnapshot{PlayState: daw.PlayState(state), Position: pos}, nil
}

// BeatPosition fetches the beat counter and time signature.
func (c *Client) BeatPosition(ctx context.Context) (daw.BeatPosition, error) {
	lines, err := c.do(ctx, "BEATPOS")
	if err != nil {
		return daw.BeatPosition{}, err
	}
	fields, err := record(lines, "BEATPOS", 8)
	if err != nil {
		return daw.BeatPosition{}, err
	}
	state, err := strconv.Atoi(fields[1])
	if err != nil {
		return daw.BeatPosition{}, malformed("BEATPOS", err)
	}
	var nums [2]float64
	for i, f := range []string{fields[2], fields[3]} {
		if nums[i], err = parseFloat(f); err != nil {
			return daw.BeatPosition{}, malformed("BEATPOS", err)
		}
	}
	num, errN := strconv.Atoi(fields[6])
	den, errD := strconv.Atoi(fields[7])
	if errN != nil || errD != nil {
		return daw.BeatPosition{}, malformed("BEATPOS", fmt.Errorf("time signature %q/%q", fields[6], fields[7]))
	}
	return daw.BeatPosition{
		PlayState:       daw.PlayState(state),
		PositionSeconds: nums[0],
		FullBeats:       nums[1],
		TimeSignature:   daw.TimeSignature{Numerator: num, Denominator: den},
	}, nil
}

// TimeSignature reads the meter at the cursor.
func (c *Client) TimeSignature(ctx context.Context) (daw.TimeSignature, error) {
	bp, err := c.BeatPosition(ctx)
	if err != nil {
		return daw.TimeSignature{}, err
	}
	if !bp.TimeSignature.Valid() {
		return daw.TimeSignature{}, malformed("BEATPOS", fmt.Errorf("invalid time signature %d/%d", bp.TimeSignature.Numerator, bp.TimeSignature.Denominator))
	}
	return bp.TimeSignature, nil
}

// Seek moves the edit cursor.
func (c *Client) Seek(ctx context.Context, position float64) error {
	if position < 0 {
		position = 0
	}
	_, err := c.do(ctx, "SET/POS/"+strconv.FormatFloat(position, 'f', 3, 64))
	return err
}

// Play starts playback.
func (c *Client) Play(ctx context.Context) error {
	_, err := c.do(ctx, CommandPlay)
	return err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.do(ctx, CommandPause)
	return err
}

// PlayWithCountIn runs the configured pre-roll play action.
func (c *Client) PlayWithCountIn(ctx context.Context) error {
	_, err := c.do(ctx, c.countInCommand)
	return err
}

// Regions lists the project's regions.
func (c *Client) Regions(ctx context.Context) ([]daw.RegionInfo, error) {
	lines, err := c.do(ctx, "REGION")
	if err != nil {
		return nil, err
	}
	var regions []daw.RegionInfo
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if fields[0] != "REGION" {
			continue
		}
		if len(fields) < 5 {
			return nil, malformed("REGION", fmt.Errorf("short record %q", line))
		}
		start, errS := parseFloat(fields[3])
		end, errE := parseFloat(fields[4])
		if errS != nil || errE != nil {
			return nil, malformed("REGION", fmt.Errorf("bad bounds in %q", line))
		}
		regions = append(regions, daw.RegionInfo{
			ID:    fields[2],
			Name:  fields[1],
			Start: start,
			End:   end,
			Color: field(fields, 5),
		})
	}
	return regions, nil
}

// Markers lists the project's markers.
func (c *Client) Markers(ctx context.Context) ([]daw.MarkerInfo, error) {
	lines, err := c.do(ctx, "MARKER")
	if err != nil {
		return nil, err
	}
	var markers []daw.MarkerInfo
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if fields[0] != "MARKER" {
			continue
		}
		if len(fields) < 4 {
			return nil, malformed("MARKER", fmt.Errorf("short record %q", line))
		}
		pos, err := parseFloat(fields[3])
		if err != nil {
			return nil, malformed("MARKER", err)
		}
		markers = append(markers, daw.MarkerInfo{
			ID:       fields[2],
			Name:     fields[1],
			Position: pos,
			Color:    field(fields, 4),
		})
	}
	return markers, nil
}

// ProjectExtState reads one value of the project's extended state. A
// missing key reads as "".
func (c *Client) ProjectExtState(ctx context.Context, section, key string) (string, error) {
	lines, err := c.do(ctx, "GET/PROJEXTSTATE/"+url.PathEscape(section)+"/"+url.PathEscape(key))
	if err != nil {
		return "", err
	}
	fields, err := record(lines, "PROJEXTSTATE", 3)
	if err != nil {
		return "", err
	}
	return field(fields, 3), nil
}

// SetProjectExtState writes one value of the project's extended state.
func (c *Client) SetProjectExtState(ctx context.Context, section, key, value string) error {
	_, err := c.do(ctx, "SET/PROJEXTSTATE/"+url.PathEscape(section)+"/"+url.PathEscape(key)+"/"+url.PathEscape(value))
	return err
}

func (c *Client) do(ctx context.Context, command string) (lines []string, err error) {
	name := command
	if i := strings.IndexByte(name, '/'); i > 0 {
		name = name[:i+1] + strings.SplitN(name[i+1:], "/", 2)[0]
	}
	ctx, span := c.tracer.Start(ctx, "reaper "+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("reaper.command", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_/"+command, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", daw.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", daw.ErrUnavailable, name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", daw.ErrUnavailable, name, err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	c.logger.Debug("reaper command", "command", name, "lines", len(lines))
	return lines, nil
}

// record finds the first line tagged tag with at least minFields fields.
func record(lines []string, tag string, minFields int) ([]string, error) {
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if fields[0] != tag {
			continue
		}
		if len(fields) < minFields {
			return nil, malformed(tag, fmt.Errorf("short record %q", line))
		}
		return fields, nil
	}
	return nil, malformed(tag, fmt.Errorf("no %s record in response", tag))
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func malformed(tag string, err error) error {
	return fmt.Errorf("%w: malformed %s response: %w", daw.ErrUnavailable, tag, err)
}
