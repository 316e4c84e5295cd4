// Package forms places structured data onto DSHS regulatory form templates.
//
// A Layout is pure data: which template file to use, how many pages it has
// and where each value goes, in PDF points from the top-left corner of the
// page. The Filler walks a layout and writes the values it finds in a
// map built from job variables.
package forms

import (
	"errors"
	"fmt"

	"afh-workers/internal/models"
)

// US Letter in points.
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

var (
	ErrUnknownFormType = errors.New("unknown form type")
	ErrInvalidLayout   = errors.New("invalid layout")
)

// FieldKind controls how a value is printed.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindCheckbox  FieldKind = "checkbox"
	KindDate      FieldKind = "date"
	KindMultiline FieldKind = "multiline"
)

// Field places one value. Key is a dotted path into the form data.
type Field struct {
	Key        string    `json:"key"`
	Page       int       `json:"page"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	FontSize   float64   `json:"fontSize,omitempty"`
	Kind       FieldKind `json:"kind,omitempty"`
	MaxWidth   float64   `json:"maxWidth,omitempty"`
	Lines      int       `json:"lines,omitempty"`
	LineHeight float64   `json:"lineHeight,omitempty"`
}

// GridColumn is one fixed column of a grid row.
type GridColumn struct {
	Key   string  `json:"key"`
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// Grid places a repeating list, one row per item of the array at Key.
// Items that do not fit in MaxRows continue on appended copies of Page.
type Grid struct {
	Key        string       `json:"key"`
	Page       int          `json:"page"`
	OriginY    float64      `json:"originY"`
	RowHeight  float64      `json:"rowHeight"`
	MaxRows    int          `json:"maxRows"`
	FontSize   float64      `json:"fontSize,omitempty"`
	Columns    []GridColumn `json:"columns"`
	DayKey     string       `json:"dayKey,omitempty"`
	DayColumns int          `json:"dayColumns,omitempty"`
	DayOriginX float64      `json:"dayOriginX,omitempty"`
	DayWidth   float64      `json:"dayWidth,omitempty"`
}

// Capacity is the number of rows one page of the grid holds.
func (g Grid) Capacity() int {
	if g.MaxRows <= 0 {
		return 1
	}
	return g.MaxRows
}

// Layout is the coordinate table of one form.
type Layout struct {
	FormType   models.FormType `json:"formType"`
	Title      string          `json:"title"`
	Template   string          `json:"template,omitempty"`
	Pages      int             `json:"pages"`
	PageWidth  float64         `json:"pageWidth,omitempty"`
	PageHeight float64         `json:"pageHeight,omitempty"`
	PageTitles []string        `json:"pageTitles,omitempty"`
	Fields     []Field         `json:"fields"`
	Grids      []Grid          `json:"grids,omitempty"`
	Required   []string        `json:"required,omitempty"`
}

// Size returns the page size, defaulting to portrait Letter.
func (l *Layout) Size() (float64, float64) {
	w, h := l.PageWidth, l.PageHeight
	if w <= 0 {
		w = LetterWidth
	}
	if h <= 0 {
		h = LetterHeight
	}
	return w, h
}

// PageTitle is the heading printed on blank pages.
func (l *Layout) PageTitle(page int) string {
	if page >= 1 && page <= len(l.PageTitles) && l.PageTitles[page-1] != "" {
		return l.PageTitles[page-1]
	}
	return l.Title
}

// Validate checks that every placement lands on a page of the form.
func (l *Layout) Validate() error {
	if l.FormType == "" {
		return fmt.Errorf("%w: missing form type", ErrInvalidLayout)
	}
	if l.Pages < 1 {
		return fmt.Errorf("%w: %s has %d pages", ErrInvalidLayout, l.FormType, l.Pages)
	}
	w, h := l.Size()
	for _, f := range l.Fields {
		if f.Key == "" {
			return fmt.Errorf("%w: %s has a field without key", ErrInvalidLayout, l.FormType)
		}
		if f.Page < 1 || f.Page > l.Pages {
			return fmt.Errorf("%w: %s field %s on page %d of %d", ErrInvalidLayout, l.FormType, f.Key, f.Page, l.Pages)
		}
		if f.X < 0 || f.X > w || f.Y < 0 || f.Y > h {
			return fmt.Errorf("%w: %s field %s outside the page", ErrInvalidLayout, l.FormType, f.Key)
		}
		switch f.Kind {
		case "", KindText, KindCheckbox, KindDate, KindMultiline:
		default:
			return fmt.Errorf("%w: %s field %s has kind %q", ErrInvalidLayout, l.FormType, f.Key, f.Kind)
		}
	}
	for _, g := range l.Grids {
		if g.Page < 1 || g.Page > l.Pages {
			return fmt.Errorf("%w: %s grid %s on page %d of %d", ErrInvalidLayout, l.FormType, g.Key, g.Page, l.Pages)
		}
		if g.RowHeight <= 0 || len(g.Columns) == 0 {
			return fmt.Errorf("%w: %s grid %s needs columns and a row height", ErrInvalidLayout, l.FormType, g.Key)
		}
		if bottom := g.OriginY + float64(g.Capacity())*g.RowHeight; bottom > h {
			return fmt.Errorf("%w: %s grid %s runs past the page", ErrInvalidLayout, l.FormType, g.Key)
		}
	}
	return nil
}
