package eventlog

import (
	"context"
	"fmt"
	"time"

	"icreports/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

type SheetConfig struct {
	Url         string `json:"url"`
	Token       string `json:"token"`
	Spreadsheet string `json:"spreadsheet"`
	Worksheet   string `json:"worksheet"`
}

func (c SheetConfig) Enabled() bool {
	return c.Url != ""
}

type appendRowRequest struct {
	Spreadsheet string   `json:"spreadsheet"`
	Worksheet   string   `json:"worksheet"`
	Values      []string `json:"values"`
}

// SheetSink appends a [timestamp, "LEVEL: message"] row to a worksheet
// through an HTTP append endpoint.
type SheetSink struct {
	client *resty.Client
	config SheetConfig
}

func NewSheetSink(config SheetConfig, output restyutil.InstrumentOutput) SheetSink {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("content-type", "application/json")
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}
	restyutil.InstrumentClient(client, otel.Tracer("icreports.lib.eventlog.sheet"), output)
	return SheetSink{client: client, config: config}
}

func (s SheetSink) Append(ctx context.Context, event Event) error {
	message := event.Message
	if event.Report != "" {
		message = fmt.Sprintf("%s: %s", event.Report, message)
	}
	res, err := s.client.R().
		SetContext(ctx).
		SetBody(appendRowRequest{
			Spreadsheet: s.config.Spreadsheet,
			Worksheet:   s.config.Worksheet,
			Values: []string{
				event.Time.Format(TimeLayout),
				fmt.Sprintf("%s: %s", event.Level, message),
			},
		}).
		Post(s.config.Url)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("append row: unexpected status %s", res.Status())
	}
	return nil
}

func (s SheetSink) Close() error {
	return nil
}
