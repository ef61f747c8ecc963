package dicomio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// attributes is the read-only view of a data set or sequence item that the
// RT Dose and RT Structure decoders need.
type attributes interface {
	floats(t tag.Tag) ([]float64, error)
	ints(t tag.Tag) ([]int, error)
	str(t tag.Tag) (string, error)
	items(t tag.Tag) ([]attributes, error)
	// pixels returns native pixel data frame by frame, first sample of
	// every pixel.
	pixels() ([][]int, error)
}

// elements adapts a list of parsed DICOM elements.
type elements []*dicom.Element

func (e elements) find(t tag.Tag) (*dicom.Element, error) {
	for _, el := range e {
		if el.Tag == t {
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrMissingAttribute, t)
}

func (e elements) value(t tag.Tag) (interface{}, error) {
	el, err := e.find(t)
	if err != nil {
		return nil, err
	}
	if el.Value == nil {
		return nil, fmt.Errorf("%w: %v has no value", ErrMissingAttribute, t)
	}
	return el.Value.GetValue(), nil
}

func (e elements) floats(t tag.Tag) ([]float64, error) {
	v, err := e.value(t)
	if err != nil {
		return nil, err
	}
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []int:
		out := make([]float64, len(vals))
		for i, n := range vals {
			out[i] = float64(n)
		}
		return out, nil
	case []string:
		return parseDecimals(vals)
	default:
		return nil, fmt.Errorf("%w: %v holds %T", ErrBadAttribute, t, v)
	}
}

func (e elements) ints(t tag.Tag) ([]int, error) {
	v, err := e.value(t)
	if err != nil {
		return nil, err
	}
	switch vals := v.(type) {
	case []int:
		return vals, nil
	case []string:
		out := make([]int, len(vals))
		for i, s := range vals {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("%w: %v: %v", ErrBadAttribute, t, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v holds %T", ErrBadAttribute, t, v)
	}
}

func (e elements) str(t tag.Tag) (string, error) {
	v, err := e.value(t)
	if err != nil {
		return "", err
	}
	vals, ok := v.([]string)
	if !ok {
		return "", fmt.Errorf("%w: %v holds %T", ErrBadAttribute, t, v)
	}
	return strings.TrimSpace(strings.Join(vals, "\\")), nil
}

func (e elements) items(t tag.Tag) ([]attributes, error) {
	v, err := e.value(t)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]*dicom.SequenceItemValue)
	if !ok {
		return nil, fmt.Errorf("%w: %v holds %T", ErrBadAttribute, t, v)
	}
	out := make([]attributes, len(seq))
	for i, item := range seq {
		els, _ := item.GetValue().([]*dicom.Element)
		out[i] = elements(els)
	}
	return out, nil
}

func (e elements) pixels() ([][]int, error) {
	el, err := e.find(tag.PixelData)
	if err != nil {
		return nil, err
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if info.IsEncapsulated {
		return nil, fmt.Errorf("%w: encapsulated pixel data", ErrBadAttribute)
	}
	out := make([][]int, 0, len(info.Frames))
	for i, fr := range info.Frames {
		native, err := fr.GetNativeFrame()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		vals := make([]int, len(native.Data))
		for j, sample := range native.Data {
			if len(sample) > 0 {
				vals[j] = sample[0]
			}
		}
		out = append(out, vals)
	}
	return out, nil
}

func parseDecimals(vals []string) ([]float64, error) {
	out := make([]float64, 0, len(vals))
	for _, s := range vals {
		for _, part := range strings.Split(s, "\\") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrBadAttribute, part, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}
