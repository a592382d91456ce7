// Package upload puts cleaned report files into a remote storage folder.
package upload

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"icreports/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("icreports.lib.upload")

type Config struct {
	BaseUrl string `json:"base_url"`
	Folder  string `json:"folder"`
	Token   string `json:"token"`
}

func (c Config) Enabled() bool {
	return c.BaseUrl != ""
}

type Client struct {
	http   *resty.Client
	config Config
}

func NewClient(config Config, output restyutil.InstrumentOutput) Client {
	client := resty.New()
	client.SetTimeout(2 * time.Minute)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(5 * time.Second)
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}
	restyutil.InstrumentClient(client, otel.Tracer("icreports.lib.upload.http"), output)
	return Client{http: client, config: config}
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

// Upload puts the file at {base_url}/{folder}/{basename} and returns that url.
func (c Client) Upload(ctx context.Context, path string) (string, error) {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()

	target, err := url.JoinPath(c.config.BaseUrl, c.config.Folder, filepath.Base(path))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid upload url")
		return "", err
	}
	span.SetAttributes(attribute.String("target", target))

	body, err := os.ReadFile(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read file")
		return "", err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", contentType(path)).
		SetBody(body).
		Put(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload file")
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("upload %s: unexpected status %s", filepath.Base(path), res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload file")
		return "", err
	}
	return target, nil
}
