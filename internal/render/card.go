package render

import (
	"html/template"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popmap/internal/numfmt"
)

// Card captions.
const (
	CardTitle = "Population"
	CardEmpty = "Select a country"
)

const (
	cardWidth      = 200
	cardRowPitch   = 24
	cardRowHeight  = 28
	cardBarX       = 70
	cardBarMax     = 150
	cardLabelSpace = 4
)

// CardRow is one selected country on the comparison card.
type CardRow struct {
	Country string
	Value   float64
	HasData bool
}

// CardModel lists the selected countries in selection order.
type CardModel struct {
	Rows []CardRow
}

// BarScale maps values linearly from [0, max] to [0, 150]. A zero max is
// treated as 1.
type BarScale struct {
	max float64
}

// NewBarScale builds the scale from the rows that carry data.
func NewBarScale(rows []CardRow) BarScale {
	var m float64
	for _, r := range rows {
		if r.HasData && r.Value > m {
			m = r.Value
		}
	}
	if m == 0 {
		m = 1
	}
	return BarScale{max: m}
}

// Width returns the bar width for v.
func (s BarScale) Width(v float64) float64 {
	return v / s.max * cardBarMax
}

type cardRowView struct {
	Y      int
	Name   string
	BarW   string
	LabelX string
	Value  string
}

type cardView struct {
	Title  string
	Empty  string
	Width  int
	Height int
	Color  string
	Rows   []cardRowView
}

var cardTmpl = template.Must(template.New("card").Parse(
	`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" font-family="sans-serif" overflow="visible">
<title>{{.Title}}</title>
{{if .Empty}}<text x="0" y="16" font-size="12" fill="#4B5563">{{.Empty}}</text>
{{end}}{{range .Rows}}<g transform="translate(0, {{.Y}})"><text x="0" y="14" font-size="12">{{.Name}}</text><rect x="70" y="4" width="{{.BarW}}" height="16" fill="{{$.Color}}" rx="2"/><text x="{{.LabelX}}" y="16" font-size="12">{{.Value}}</text></g>
{{end}}</svg>
`))

// CardSVG writes the comparison bar chart for m to w.
func CardSVG(w io.Writer, m CardModel) error {
	view := cardView{
		Title:  CardTitle,
		Width:  cardWidth,
		Height: len(m.Rows) * cardRowHeight,
		Color:  BarColor,
	}
	if len(m.Rows) == 0 {
		view.Empty = CardEmpty
		view.Height = cardRowHeight
	}

	scale := NewBarScale(m.Rows)
	for i, r := range m.Rows {
		// Countries without data keep their slot empty.
		if !r.HasData {
			continue
		}
		barW := scale.Width(r.Value)
		view.Rows = append(view.Rows, cardRowView{
			Y:      i * cardRowPitch,
			Name:   r.Country,
			BarW:   coord(barW),
			LabelX: coord(cardBarX + barW + cardLabelSpace),
			Value:  numfmt.Grouped(r.Value),
		})
	}

	if err := cardTmpl.Execute(w, view); err != nil {
		return eris.Wrap(err, "render: execute card template")
	}
	return nil
}
