package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
)

func testConfig() *core.Config {
	conf := &core.Config{AppName: "Masomo", SendgridAPIKey: "SG.test"}
	conf.SetDefaultFromEmail("Masomo <noreply@masomo.cd>")
	return conf
}

func loadTemplates(t *testing.T) {
	t.Helper()
	fsys := fstest.MapFS{
		"tmpl/_base.txt":       {Data: []byte(`{{define "base"}}Bonjour, {{template "content" .}}{{end}}`)},
		"tmpl/_base.gohtml":    {Data: []byte(`{{define "base"}}<p>Bonjour,</p>{{template "content" .}}{{end}}`)},
		"tmpl/greeting.txt":    {Data: []byte(`{{define "content"}}Poste : {{.Data.Position}}{{end}}`)},
		"tmpl/greeting.gohtml": {Data: []byte(`{{define "content"}}<b>{{.Data.Position}}</b>{{end}}`)},
	}
	core.ParseEmailTemplates(fsys, "tmpl", "http://localhost:3000", true, core.NopLogger{})
}

func TestConsoleService(t *testing.T) {
	loadTemplates(t)
	out := new(bytes.Buffer)
	svc := NewConsoleService(testConfig(), out, nil).Synchronous()

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "Sarah Ilunga", Address: "sarah@example.com"}},
		ReplyTo:      &mail.Address{Address: "rh@masomo.cd"},
		Subject:      "Votre candidature",
		TemplateName: "greeting",
		TemplateData: map[string]interface{}{"Position": "Bibliothécaire"},
	}
	require.NoError(t, msg.Attach(strings.NewReader("Quand faut-il payer les frais ?"), "message.txt", "text/plain; charset=utf-8"))
	svc.SendMessages(msg, &core.EmailMessage{Subject: "no recipient", BodyStr: "ignored"})

	require.Len(t, svc.Sent(), 1)
	txt := out.String()
	assert.Contains(t, txt, "Subject: [Masomo] Votre candidature")
	assert.Contains(t, txt, "Reply-To: <rh@masomo.cd>")
	assert.Contains(t, txt, "Poste : Bibliothécaire")
	assert.Contains(t, txt, "<b>Bibliothécaire</b>")
	assert.NotContains(t, txt, "ignored")
	assert.Contains(t, txt, "Content-Type: multipart/mixed")
	assert.Contains(t, txt, "Content-Disposition: attachment; filename=message.txt")
	assert.Contains(t, txt, "UXVhbmQgZmF1dC1pbCBwYXllciBsZXMgZnJhaXMgPw==")
}

func TestSendgridService(t *testing.T) {
	loadTemplates(t)
	var (
		mu     sync.Mutex
		bodies []map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(data, &body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewSendgridService(testConfig(), core.NopLogger{}).WithHost(srv.URL)
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "parent@example.com"}},
		ReplyTo: &mail.Address{Address: "secretariat@masomo.cd"},
		Subject: "Re: Frais scolaires",
		BodyStr: "Les frais sont payables en deux tranches.",
	}
	require.NoError(t, msg.Attach(strings.NewReader("Quand faut-il payer les frais ?"), "message.txt", "text/plain; charset=utf-8"))
	svc.SendMessages(msg)
	svc.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	body := bodies[0]
	assert.Equal(t, "secretariat@masomo.cd", body["reply_to"].(map[string]interface{})["email"])
	p := body["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[Masomo] Re: Frais scolaires", p["subject"])

	content := body["content"].([]interface{})
	require.Len(t, content, 1, "no empty html part")
	assert.True(t, strings.HasPrefix(content[0].(map[string]interface{})["value"].(string), "Les frais"))

	attachments := body["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	assert.Equal(t, map[string]interface{}{
		"content":     "UXVhbmQgZmF1dC1pbCBwYXllciBsZXMgZnJhaXMgPw==",
		"type":        "text/plain; charset=utf-8",
		"filename":    "message.txt",
		"disposition": "attachment",
	}, attachments[0])
}
