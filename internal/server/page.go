package server

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popmap/internal/mapview"
	"github.com/sells-group/popmap/internal/metrics"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Latin America population</title>
<style>
body { margin: 0; padding: 24px; font-family: sans-serif; background: #f5f5f5; }
main { display: flex; flex-wrap: wrap; gap: 24px; align-items: flex-start; }
.map { max-width: 660px; background: #fff; border-radius: 16px; padding: 20px; box-shadow: 0 10px 25px rgba(0,0,0,0.1); }
.card { background: #fff; border-radius: 8px; padding: 16px; width: 320px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
.card h2 { font-size: 18px; margin: 0 0 16px; }
.countries a:hover path { stroke: #EEE7E0; stroke-width: 2; }
.legend a { cursor: pointer; }
.legend a:hover g { opacity: 0.8; }
</style>
</head>
<body>
<main>
<section class="map">{{.Map}}</section>
<aside class="card"><h2>{{.CardTitle}}</h2>{{.Card}}</aside>
</main>
</body>
</html>
`))

type pageView struct {
	Map       template.HTML
	Card      template.HTML
	CardTitle string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pageFromRequest(w, r)
	if !ok {
		return
	}
	s.cached(w, r, metrics.KindPage, p.Fingerprint(), contentTypeHTML, func(buf *bytes.Buffer) error {
		return renderPage(buf, p)
	})
}

func renderPage(buf *bytes.Buffer, p *mapview.Page) error {
	var mapBuf, cardBuf bytes.Buffer
	if err := render.MapSVG(&mapBuf, withLinks(p)); err != nil {
		return err
	}
	if err := render.CardSVG(&cardBuf, p.CardModel()); err != nil {
		return err
	}

	view := pageView{
		// Both documents come from html/template and are already escaped.
		Map:       template.HTML(mapBuf.String()),
		Card:      template.HTML(cardBuf.String()),
		CardTitle: render.CardTitle,
	}
	if err := pageTmpl.Execute(buf, view); err != nil {
		return eris.Wrap(err, "server: execute page template")
	}
	return nil
}

// withLinks returns the map model with every country linked to its pick and
// every legend entry linked to its toggled filter. Links keep the zoom.
func withLinks(p *mapview.Page) render.MapModel {
	m := p.MapModel()
	sel := p.Selection()
	zoom := p.Zoom()
	active, on := p.ActiveQuartile()

	for i := range m.Features {
		q := stateQuery(sel, zoom, active, on)
		q.Set(paramPick, m.Features[i].Name)
		m.Features[i].Href = "/?" + q.Encode()
	}
	for i := range quartile.NumBuckets {
		b := quartile.Bucket(i)
		// Clicking the active entry clears the filter.
		q := stateQuery(sel, zoom, b, !(on && active == b))
		m.LegendHrefs[i] = "/?" + q.Encode()
	}
	return m
}

func stateQuery(sel []string, zoom string, active quartile.Bucket, on bool) url.Values {
	q := url.Values{}
	for _, name := range sel {
		q.Add(paramSelected, name)
	}
	if zoom != "" {
		q.Set(paramZoom, zoom)
	}
	if on {
		q.Set(paramActive, strconv.Itoa(int(active)))
	}
	return q
}
