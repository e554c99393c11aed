package uploader

import (
	"bytes"
	"context"
	"html/template"

	"github.com/lanterndav/lantern/httpcore"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<form action="{{.Prefix}}/upload" method="post" enctype="multipart/form-data">
  <input type="hidden" name="path" value="">
  <input type="file" name="files[]" multiple>
  <button type="submit">Upload</button>
</form>
<div id="listing"></div>
</body>
</html>
`))

type indexData struct {
	Title  string
	Prefix string
}

func (s *Service) handleIndex(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{Title: "lantern", Prefix: s.Prefix}); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to render uploader page", err)
	}
	resp := httpcore.NewResponse(200, httpcore.BytesBody{Data: buf.Bytes()})
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return resp, nil
}
