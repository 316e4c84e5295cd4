package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"
	"afh-workers/internal/common/placeholder"
	"afh-workers/internal/models"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
)

// ErrRenderFailed wraps any failure inside the PDF writer.
var ErrRenderFailed = errors.New("form render failed")

const (
	defaultFontFamily = "Helvetica"
	defaultFontSize   = 10.0
	minFontSize       = 6.0
	ellipsis          = "..."
)

// Document is a rendered form.
type Document struct {
	FormType  models.FormType
	Bytes     []byte
	PageCount int
}

// Filler renders layouts from a registry.
type Filler struct {
	registry    *Registry
	templateDir string
	fontFamily  string
	logger      logger.Logger
	now         func() time.Time
}

// NewFiller returns a Filler. Templates are looked up in templateDir; a
// missing template yields plain pages carrying the form title.
func NewFiller(reg *Registry, templateDir, fontFamily string, log logger.Logger) *Filler {
	if reg == nil {
		reg = NewRegistry()
	}
	if fontFamily == "" {
		fontFamily = defaultFontFamily
	}
	return &Filler{
		registry:    reg,
		templateDir: templateDir,
		fontFamily:  fontFamily,
		logger:      log.WithFields(map[string]interface{}{"component": "form-filler"}),
		now:         time.Now,
	}
}

// Registry exposes the layouts the filler renders.
func (f *Filler) Registry() *Registry {
	return f.registry
}

// plannedPage is one physical page of the output.
type plannedPage struct {
	layoutPage int
	chunk      int // grid chunk printed on this page
}

// Fill renders formType with data.
func (f *Filler) Fill(ctx context.Context, formType models.FormType, data map[string]interface{}) (*Document, error) {
	l, err := f.registry.Get(formType)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	plan := planPages(l, data)
	width, height := l.Size()

	templatePath := f.templatePath(l)
	useTemplate := templatePath != "" && f.probeTemplate(templatePath, l.Pages, width, height)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(f.now())
	pdf.SetCatalogSort(true)
	pdf.SetTitle(l.Title, true)

	r := &pageRenderer{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		fontFamily: f.fontFamily,
		layout:     l,
		data:       data,
	}

	var importer *gofpdi.Importer
	templates := make(map[int]int)
	if useTemplate {
		importer = gofpdi.NewImporter()
	}

	for i, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()

		if importer != nil {
			tpl, ok := templates[p.layoutPage]
			if !ok {
				if tpl, err = importPage(importer, pdf, templatePath, p.layoutPage); err != nil {
					return nil, err
				}
				templates[p.layoutPage] = tpl
			}
			importer.UseImportedTemplate(pdf, tpl, 0, 0, width, height)
		} else {
			r.drawBlankPage(p.layoutPage, i+1, len(plan))
		}

		r.drawFields(p.layoutPage)
		r.drawGrids(p.layoutPage, p.chunk, importer == nil)

		if pdf.Err() {
			return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, i+1, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	metrics.FormsRendered.WithLabelValues(string(formType), "pdf").Inc()
	metrics.FormPages.WithLabelValues(string(formType)).Observe(float64(len(plan)))

	f.logger.Debug("form rendered", map[string]interface{}{
		"form_type": formType,
		"pages":     len(plan),
		"bytes":     buf.Len(),
		"template":  useTemplate,
	})

	return &Document{FormType: formType, Bytes: buf.Bytes(), PageCount: len(plan)}, nil
}

func (f *Filler) templatePath(l *Layout) string {
	if l.Template == "" || f.templateDir == "" {
		return ""
	}
	path := filepath.Join(f.templateDir, l.Template)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func importPage(imp *gofpdi.Importer, pdf *fpdf.Fpdf, path string, page int) (tpl int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: import template page %d: %v", ErrRenderFailed, page, rec)
		}
	}()
	return imp.ImportPage(pdf, path, page, "/MediaBox"), nil
}

// probeTemplate imports the last page the layout needs into a scratch
// document. The importer panics on some malformed files.
func (f *Filler) probeTemplate(path string, pages int, width, height float64) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			f.logger.Warn("form template unreadable, using blank pages", map[string]interface{}{
				"template": path,
				"panic":    fmt.Sprint(rec),
			})
			ok = false
		}
	}()

	scratch := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	scratch.AddPage()
	imp := gofpdi.NewImporter()
	tpl := imp.ImportPage(scratch, path, pages, "/MediaBox")
	imp.UseImportedTemplate(scratch, tpl, 0, 0, width, height)
	if scratch.Err() {
		f.logger.Warn("form template unusable, using blank pages", map[string]interface{}{
			"template": path,
			"error":    scratch.Error().Error(),
		})
		return false
	}
	return true
}

// planPages expands layout pages that carry grids into as many copies as
// the grid rows need.
func planPages(l *Layout, data map[string]interface{}) []plannedPage {
	plan := make([]plannedPage, 0, l.Pages)
	for page := 1; page <= l.Pages; page++ {
		chunks := 1
		for _, g := range l.Grids {
			if g.Page != page {
				continue
			}
			rows := len(gridRows(data, g.Key))
			if n := int(math.Ceil(float64(rows) / float64(g.Capacity()))); n > chunks {
				chunks = n
			}
		}
		for c := 0; c < chunks; c++ {
			plan = append(plan, plannedPage{layoutPage: page, chunk: c})
		}
	}
	return plan
}

func gridRows(data map[string]interface{}, key string) []map[string]interface{} {
	v, ok := placeholder.Lookup(data, key)
	if !ok {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

type pageRenderer struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	fontFamily string
	layout     *Layout
	data       map[string]interface{}
}

func (r *pageRenderer) drawBlankPage(layoutPage, n, total int) {
	width, height := r.layout.Size()

	r.pdf.SetFont(r.fontFamily, "B", 14)
	r.pdf.Text(36, 40, r.tr(r.layout.PageTitle(layoutPage)))

	r.pdf.SetFont(r.fontFamily, "", 8)
	footer := fmt.Sprintf("Page %d of %d", n, total)
	r.pdf.Text(width-36-r.pdf.GetStringWidth(footer), height-24, footer)
	if r.layout.Title != r.layout.PageTitle(layoutPage) {
		r.pdf.Text(36, height-24, r.tr(r.layout.Title))
	}
}

func (r *pageRenderer) drawFields(page int) {
	for _, field := range r.layout.Fields {
		if field.Page != page {
			continue
		}
		v, ok := placeholder.Lookup(r.data, field.Key)
		if !ok {
			continue
		}
		size := field.FontSize
		if size <= 0 {
			size = defaultFontSize
		}

		switch field.Kind {
		case KindCheckbox:
			if Truthy(v) {
				r.pdf.SetFont(r.fontFamily, "B", size)
				r.pdf.Text(field.X, field.Y, "X")
			}
		case KindDate:
			r.fitText(FormatDate(v), field.X, field.Y, size, field.MaxWidth)
		case KindMultiline:
			r.wrapText(FormatValue(v), field, size)
		default:
			r.fitText(FormatValue(v), field.X, field.Y, size, field.MaxWidth)
		}
	}
}

// fitText writes s on one line no wider than maxWidth, shrinking the font
// first and truncating once the floor is reached.
func (r *pageRenderer) fitText(s string, x, y, size, maxWidth float64) {
	s = r.tr(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return
	}
	r.pdf.SetFont(r.fontFamily, "", size)
	if maxWidth > 0 {
		floor := math.Max(size*0.6, minFontSize)
		for size > floor && r.pdf.GetStringWidth(s) > maxWidth {
			size = math.Max(size-0.5, floor)
			r.pdf.SetFontSize(size)
		}
		s = r.truncate(s, maxWidth)
	}
	r.pdf.Text(x, y, s)
}

// truncate cuts s to fit maxWidth with a trailing ellipsis. Widths too
// narrow for the ellipsis itself yield "".
func (r *pageRenderer) truncate(s string, maxWidth float64) string {
	if r.pdf.GetStringWidth(s) <= maxWidth {
		return s
	}
	if r.pdf.GetStringWidth(ellipsis) > maxWidth {
		return ""
	}
	runes := []rune(s)
	for len(runes) > 0 && r.pdf.GetStringWidth(string(runes)+ellipsis) > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + ellipsis
}

func (r *pageRenderer) wrapText(s string, field Field, size float64) {
	s = r.tr(strings.TrimSpace(s))
	if s == "" {
		return
	}
	r.pdf.SetFont(r.fontFamily, "", size)

	lineHeight := field.LineHeight
	if lineHeight <= 0 {
		lineHeight = size * 1.2
	}
	maxLines := field.Lines
	if maxLines <= 0 {
		maxLines = 1
	}

	var lines []string
	for _, para := range strings.Split(s, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			lines = append(lines, "")
			continue
		}
		if field.MaxWidth <= 0 {
			lines = append(lines, para)
			continue
		}
		lines = append(lines, r.pdf.SplitText(para, field.MaxWidth)...)
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := lines[maxLines-1] + ellipsis
		if field.MaxWidth > 0 {
			last = r.truncate(last, field.MaxWidth)
		}
		lines[maxLines-1] = last
	}

	for i, line := range lines {
		if line != "" {
			r.pdf.Text(field.X, field.Y+float64(i)*lineHeight, line)
		}
	}
}

func (r *pageRenderer) drawGrids(page, chunk int, blank bool) {
	for _, g := range r.layout.Grids {
		if g.Page != page {
			continue
		}
		if blank {
			r.drawGridFrame(g)
		}

		rows := gridRows(r.data, g.Key)
		start := chunk * g.Capacity()
		if start >= len(rows) {
			continue
		}
		end := start + g.Capacity()
		if end > len(rows) {
			end = len(rows)
		}

		size := g.FontSize
		if size <= 0 {
			size = 8
		}
		for i, row := range rows[start:end] {
			baseline := g.OriginY + float64(i)*g.RowHeight + g.RowHeight*0.6
			for _, col := range g.Columns {
				v, ok := row[col.Key]
				if !ok {
					continue
				}
				r.fitText(FormatValue(v), col.X+2, baseline, size, col.Width-4)
			}
			r.drawDays(g, row, baseline, size)
		}
	}
}

func (r *pageRenderer) drawDays(g Grid, row map[string]interface{}, baseline, size float64) {
	if g.DayKey == "" || g.DayColumns <= 0 {
		return
	}
	days, ok := row[g.DayKey].(map[string]interface{})
	if !ok {
		return
	}
	for day := 1; day <= g.DayColumns; day++ {
		initials := FormatValue(days[strconv.Itoa(day)])
		if initials == "" {
			continue
		}
		r.pdf.SetFont(r.fontFamily, "", size)
		initials = r.truncate(r.tr(initials), g.DayWidth-1)
		x := g.DayOriginX + float64(day-1)*g.DayWidth + (g.DayWidth-r.pdf.GetStringWidth(initials))/2
		r.pdf.Text(x, baseline, initials)
	}
}

// drawGridFrame rules the grid and labels its columns when no template
// supplies them.
func (r *pageRenderer) drawGridFrame(g Grid) {
	left := g.Columns[0].X
	right := g.Columns[len(g.Columns)-1].X + g.Columns[len(g.Columns)-1].Width
	if g.DayColumns > 0 {
		right = g.DayOriginX + float64(g.DayColumns)*g.DayWidth
	}
	top := g.OriginY
	bottom := g.OriginY + float64(g.Capacity())*g.RowHeight

	r.pdf.SetLineWidth(0.3)
	r.pdf.SetDrawColor(120, 120, 120)
	for i := 0; i <= g.Capacity(); i++ {
		y := top + float64(i)*g.RowHeight
		r.pdf.Line(left, y, right, y)
	}

	r.pdf.SetFont(r.fontFamily, "B", 7)
	header := top - 4
	for _, col := range g.Columns {
		r.pdf.Line(col.X, top, col.X, bottom)
		r.pdf.Text(col.X+2, header, r.tr(columnLabel(col.Key)))
	}
	for day := 0; day <= g.DayColumns && g.DayColumns > 0; day++ {
		x := g.DayOriginX + float64(day)*g.DayWidth
		r.pdf.Line(x, top, x, bottom)
		if day < g.DayColumns {
			label := strconv.Itoa(day + 1)
			r.pdf.Text(x+(g.DayWidth-r.pdf.GetStringWidth(label))/2, header, label)
		}
	}
	r.pdf.Line(right, top, right, bottom)
}

func columnLabel(key string) string {
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
