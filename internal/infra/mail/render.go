package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/matcreates/tribe-sub001/internal/htmltext"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderBody turns an authored campaign body (markdown) into the HTML and
// plain text parts shared by every recipient. Raw HTML in the source is
// not passed through.
func RenderBody(body string) (htmlBody, textBody string, err error) {
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &out); err != nil {
		return "", "", fmt.Errorf("render campaign body: %w", err)
	}
	htmlBody = out.String()
	return htmlBody, htmltext.FromHTML(htmlBody), nil
}

func UnsubscribeURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/unsubscribe?token=" + url.QueryEscape(token)
}

func PixelURL(baseURL, campaignID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/track/" + url.PathEscape(campaignID) + "/pixel.gif"
}

func VerifyURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/verify?token=" + url.QueryEscape(token)
}

type campaignEmailData struct {
	Body           template.HTML
	Signature      string
	UnsubscribeURL string
	PixelURL       string
}

var campaignTpl = template.Must(template.New("campaign").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body style="font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;margin:0;padding:24px;color:#111">
<div style="max-width:600px;margin:0 auto;font-size:15px;line-height:1.6">
{{.Body}}
{{- if .Signature}}
<p style="margin-top:24px;white-space:pre-line;color:#444">{{.Signature}}</p>
{{- end}}
<hr style="border:none;border-top:1px solid #eee;margin:32px 0 16px">
<p style="font-size:12px;color:#999;text-align:center"><a href="{{.UnsubscribeURL}}" style="color:#999">Unsubscribe</a></p>
</div>
<img src="{{.PixelURL}}" width="1" height="1" alt="" style="display:block;width:1px;height:1px;border:0">
</body>
</html>`))

func personalizeHTML(in BulkInput, r recipientLinks) (string, error) {
	var out bytes.Buffer
	err := campaignTpl.Execute(&out, campaignEmailData{
		Body:           template.HTML(in.HTMLBody),
		Signature:      in.Signature,
		UnsubscribeURL: r.unsubscribe,
		PixelURL:       r.pixel,
	})
	if err != nil {
		return "", fmt.Errorf("render campaign email: %w", err)
	}
	return out.String(), nil
}

func personalizeText(in BulkInput, r recipientLinks) string {
	var b strings.Builder
	b.WriteString(in.TextBody)
	if in.Signature != "" {
		b.WriteString("\n\n")
		b.WriteString(in.Signature)
	}
	b.WriteString("\n\n--\nUnsubscribe: ")
	b.WriteString(r.unsubscribe)
	b.WriteString("\n")
	return b.String()
}

type recipientLinks struct {
	unsubscribe string
	pixel       string
}

type verificationEmailData struct {
	OwnerName string
	VerifyURL string
}

var verificationTpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body style="font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#121212;margin:0;padding:40px 20px">
<div style="max-width:400px;margin:0 auto;border:1px solid rgba(255,255,255,0.08);border-radius:16px;padding:40px">
  <h1 style="color:rgba(255,255,255,0.9);font-size:20px;font-weight:500;margin:0 0 16px;text-align:center">Confirm your subscription</h1>
  <p style="color:rgba(255,255,255,0.5);font-size:14px;line-height:1.6;margin:0 0 24px;text-align:center">
    You requested to join <strong style="color:rgba(255,255,255,0.7)">{{.OwnerName}}'s</strong> tribe. Click the button below to confirm.
  </p>
  <div style="text-align:center">
    <a href="{{.VerifyURL}}" style="display:inline-block;border:1px solid rgba(255,255,255,0.1);color:rgba(255,255,255,0.8);padding:12px 24px;border-radius:8px;text-decoration:none;font-size:13px">CONFIRM SUBSCRIPTION</a>
  </div>
  <p style="color:rgba(255,255,255,0.3);font-size:12px;margin:32px 0 0;text-align:center">If you didn't request this, you can safely ignore this email.</p>
</div>
</body>
</html>`))
