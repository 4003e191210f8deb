package form

import (
	"regexp"
	"strconv"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
)

// Field dictionaries are located object by object rather than through the
// object graph. That misses fields inside compressed object streams, which
// is the accepted cost of a scan that needs no full parse.
var (
	objPattern       = regexp.MustCompile(`(?s)(\d+)\s+0\s+obj\b(.*?)endobj`)
	pageTypePattern  = regexp.MustCompile(`/Type\s*/Page\b`)
	fieldTypePattern = regexp.MustCompile(`/FT\s*/(Tx|Btn|Ch)\b`)
	namePattern      = regexp.MustCompile(`/T\s*\(([^)]*)\)`)
	valueStrPattern  = regexp.MustCompile(`/V\s*\(([^)]*)\)`)
	valueNamePattern = regexp.MustCompile(`/V\s*/([^\s/<>\[\]()]+)`)
	flagsPattern     = regexp.MustCompile(`/Ff\s+(\d+)`)
	rectPattern      = regexp.MustCompile(`/Rect\s*\[\s*([-\d.]+)\s+([-\d.]+)\s+([-\d.]+)\s+([-\d.]+)\s*\]`)
	pageRefPattern   = regexp.MustCompile(`/P\s+(\d+)\s+0\s+R`)
	optPattern       = regexp.MustCompile(`(?s)/Opt\s*\[(.*?)\]`)
	optItemPattern   = regexp.MustCompile(`\(([^)]*)\)`)
)

// Widget flag bits from the AcroForm field-flag word.
const (
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// Scan discovers form fields in raw PDF bytes. Returns an empty form, not
// an error, when the document has no fields. Page bindings resolve through
// /P references against page objects in appearance order; a binding that
// cannot be resolved leaves the field with Page -1.
func Scan(pdfData []byte) (*Form, error) {
	if len(pdfData) == 0 {
		return nil, docerr.New(docerr.Validation, "document bytes are empty")
	}

	content := string(pdfData)
	objects := objPattern.FindAllStringSubmatch(content, -1)

	// Page object numbers in appearance order approximate the page order;
	// writers emit pages in sequence.
	pageIndexByObj := make(map[int]int)
	for _, obj := range objects {
		if pageTypePattern.MatchString(obj[2]) {
			num, err := strconv.Atoi(obj[1])
			if err != nil {
				continue
			}
			if _, dup := pageIndexByObj[num]; !dup {
				pageIndexByObj[num] = len(pageIndexByObj)
			}
		}
	}

	f := &Form{}
	seen := make(map[string]bool)
	for _, obj := range objects {
		body := obj[2]
		ft := fieldTypePattern.FindStringSubmatch(body)
		if ft == nil {
			continue
		}
		name := namePattern.FindStringSubmatch(body)
		if name == nil || name[1] == "" {
			continue
		}
		if seen[name[1]] {
			// Same /T again, usually a widget kid of a field already seen.
			continue
		}

		var flags int
		if m := flagsPattern.FindStringSubmatch(body); m != nil {
			flags, _ = strconv.Atoi(m[1])
		}
		if ft[1] == "Btn" && flags&flagPushbutton != 0 {
			// Pushbuttons hold no value; nothing to fill or flatten.
			continue
		}

		fld := &Field{Name: name[1], Page: -1}
		switch {
		case ft[1] == "Btn" && flags&flagRadio != 0:
			fld.Kind = RadioGroup
		case ft[1] == "Btn":
			fld.Kind = CheckBox
		default:
			// Choice fields fill and flatten like text.
			fld.Kind = TextField
		}

		if m := valueStrPattern.FindStringSubmatch(body); m != nil {
			fld.Value = m[1]
		} else if m := valueNamePattern.FindStringSubmatch(body); m != nil {
			if fld.Kind == CheckBox {
				fld.Checked = m[1] != "Off"
			} else {
				fld.Value = m[1]
			}
		}

		if m := rectPattern.FindStringSubmatch(body); m != nil {
			fld.Rect = rectFromCorners(m[1], m[2], m[3], m[4])
		}
		if m := pageRefPattern.FindStringSubmatch(body); m != nil {
			if num, err := strconv.Atoi(m[1]); err == nil {
				if idx, ok := pageIndexByObj[num]; ok {
					fld.Page = idx
				}
			}
		}
		if m := optPattern.FindStringSubmatch(body); m != nil {
			for _, item := range optItemPattern.FindAllStringSubmatch(m[1], -1) {
				fld.Options = append(fld.Options, item[1])
			}
		}

		seen[name[1]] = true
		f.fields = append(f.fields, fld)
	}
	return f, nil
}

// rectFromCorners turns the /Rect corner pair into a normalized
// document-space rectangle. PDF rectangles may name any two opposite
// corners in any order.
func rectFromCorners(x1s, y1s, x2s, y2s string) geom.Rect {
	x1, err1 := strconv.ParseFloat(x1s, 64)
	y1, err2 := strconv.ParseFloat(y1s, 64)
	x2, err3 := strconv.ParseFloat(x2s, 64)
	y2, err4 := strconv.ParseFloat(y2s, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return geom.Rect{}
	}
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return geom.Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}
