package server

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popmap/internal/mapview"
	"github.com/sells-group/popmap/internal/metrics"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
	"github.com/sells-group/popmap/internal/selection"
)

// Query parameters carrying the page state.
const (
	paramSelected = "sel"
	paramPick     = "pick"
	paramHover    = "hover"
	paramActive   = "active"
	paramLabel    = "label"
	paramZoom     = "zoom"
)

// pageState is the client-held state of one map page.
type pageState struct {
	selected []string
	picks    []string
	hover    string
	label    string
	zoom     string
	active   *quartile.Bucket
}

func parseState(q url.Values) (pageState, error) {
	st := pageState{
		selected: q[paramSelected],
		hover:    strings.TrimSpace(q.Get(paramHover)),
		label:    strings.TrimSpace(q.Get(paramLabel)),
		zoom:     strings.TrimSpace(q.Get(paramZoom)),
	}
	for _, p := range q[paramPick] {
		if p = strings.TrimSpace(p); p != "" {
			st.picks = append(st.picks, p)
		}
	}
	if raw := strings.TrimSpace(q.Get(paramActive)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pageState{}, eris.Errorf("active must be an integer, got %q", raw)
		}
		b := quartile.Bucket(n)
		if !b.Valid() {
			return pageState{}, eris.Errorf("active must be between 0 and %d, got %d", quartile.NumBuckets-1, n)
		}
		st.active = &b
	}
	return st, nil
}

// page replays the state onto a fresh page: selection and zoom, picks in
// order, then hover, explicit label and legend filter.
func (s *Server) page(st pageState) *mapview.Page {
	p := s.ds.NewPage(st.selected)
	p.SetZoom(st.zoom)
	for _, name := range st.picks {
		p.OnFeatureClick(name)
	}
	s.metrics.AddSelections(len(st.picks))
	if st.hover != "" {
		p.OnFeatureHover(st.hover)
	}
	if st.label != "" {
		p.ShowLabel(st.label)
	}
	if st.active != nil {
		// The filter starts cleared, so toggling activates it.
		_ = p.ToggleQuartile(*st.active)
	}
	return p
}

func (s *Server) pageFromRequest(w http.ResponseWriter, r *http.Request) (*mapview.Page, bool) {
	st, err := parseState(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return s.page(st), true
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pageFromRequest(w, r)
	if !ok {
		return
	}
	s.cached(w, r, metrics.KindMap, p.Fingerprint(), contentTypeSVG, func(buf *bytes.Buffer) error {
		return render.MapSVG(buf, p.MapModel())
	})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pageFromRequest(w, r)
	if !ok {
		return
	}
	s.cached(w, r, metrics.KindCard, p.CardFingerprint(), contentTypeSVG, func(buf *bytes.Buffer) error {
		return render.CardSVG(buf, p.CardModel())
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ds.Summaries())
}

type bucketResponse struct {
	Index   int      `json:"index"`
	Color   string   `json:"color"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Label   string   `json:"label"`
	Size    int      `json:"size"`
	Members []string `json:"members"`
}

type spanResponse struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (s *Server) handleBuckets(w http.ResponseWriter, _ *http.Request) {
	res := s.ds.Buckets
	out := make([]bucketResponse, 0, quartile.NumBuckets)
	for i := range quartile.NumBuckets {
		b := quartile.Bucket(i)
		members := res.Members(b)
		if members == nil {
			members = []string{}
		}
		out = append(out, bucketResponse{
			Index:   i,
			Color:   s.ds.Palette[i],
			Min:     res.Ranges[i].Min,
			Max:     res.Ranges[i].Max,
			Label:   render.LegendText(res.Ranges[i]),
			Size:    res.Sizes[i],
			Members: members,
		})
	}
	lo, hi := res.Span()
	writeJSON(w, http.StatusOK, map[string]any{
		"buckets": out,
		"span":    spanResponse{Min: lo, Max: hi},
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	st, err := parseState(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel := selection.Apply(selection.Normalize(st.selected), st.picks...)
	s.metrics.AddSelections(len(st.picks))
	writeJSON(w, http.StatusOK, map[string][]string{"selection": sel})
}
