package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const formNamePrefix = "ScrubFm"

// form is a form XObject ready to be interpreted
type form struct {
	dict    types.Dict
	content []byte
	matrix  matrix
	// resDict is the form's own resource dictionary, or the one of the stream
	// drawing it when the form has none
	resDict types.Dict
	res     resources
}

// resourceDict resolves fonts and forms from one resource dictionary
type resourceDict struct {
	doc  *Document
	dict types.Dict
}

func (r resourceDict) sub(key string) types.Dict {
	if r.dict == nil {
		return nil
	}
	o, ok := r.dict.Find(key)
	if !ok {
		return nil
	}
	d, err := r.doc.ctx.DereferenceDict(o)
	if err != nil {
		return nil
	}
	return d
}

// font resolves a font resource, nil when it cannot be loaded
func (r resourceDict) font(name string) *font {
	fonts := r.sub("Font")
	if fonts == nil {
		return nil
	}
	o, ok := fonts.Find(name)
	if !ok {
		return nil
	}
	return r.doc.font(o)
}

// form resolves a form XObject, nil for images and unreadable objects
func (r resourceDict) form(name string) *form {
	xobjects := r.sub("XObject")
	if xobjects == nil {
		return nil
	}
	o, ok := xobjects.Find(name)
	if !ok {
		return nil
	}

	ctx := r.doc.ctx
	sd, _, err := ctx.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return nil
	}
	if st := sd.NameEntry("Subtype"); st == nil || *st != "Form" {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}

	f := &form{dict: sd.Dict, content: sd.Content, matrix: identity, resDict: r.dict}
	if arr := arrayValue(ctx, sd.Dict, "Matrix"); len(arr) == 6 {
		var m matrix
		valid := true
		for i, v := range arr {
			n, ok := numberValue(ctx, v)
			if !ok {
				valid = false
				break
			}
			m[i] = n
		}
		if valid {
			f.matrix = m
		}
	}
	if ro, ok := sd.Find("Resources"); ok {
		if d, err := ctx.DereferenceDict(ro); err == nil && d != nil {
			f.resDict = d
		}
	}
	f.res = resourceDict{doc: r.doc, dict: f.resDict}
	return f
}

// copyForms writes, for every form drawn by s that shows a removed glyph, a
// copy without those glyphs and registers it in res under a fresh name. It
// returns the new name for each redirected Do operator of s.
func (d *Document) copyForms(l *layout, s *stream, removed map[int]bool, res types.Dict) (map[int]string, error) {
	redirects := make(map[int]string)
	var xobjects types.Dict
	for _, fd := range s.forms {
		if !fd.draws(removed) {
			continue
		}
		if xobjects == nil {
			x, err := d.ownSubdict(res, "XObject")
			if err != nil {
				return nil, err
			}
			xobjects = x
		}

		ref, err := d.copyForm(l, fd, removed)
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", fd.name, err)
		}
		name := freeName(xobjects, formNamePrefix)
		xobjects.Insert(name, *ref)
		redirects[fd.op] = name
	}

	// the original form stays reachable only where something still draws it
	for _, fd := range s.forms {
		if _, ok := redirects[fd.op]; ok && !drawnElsewhere(s, fd.name, redirects) {
			xobjects.Delete(fd.name)
		}
	}
	return redirects, nil
}

// copyForm writes a new form object drawing what fd draws minus the removed
// glyphs. Nested forms are copied into the new form's own resources.
func (d *Document) copyForm(l *layout, fd *formDraw, removed map[int]bool) (*types.IndirectRef, error) {
	res := copyDict(fd.form.resDict)
	redirects, err := d.copyForms(l, &fd.stream, removed, res)
	if err != nil {
		return nil, err
	}

	sd, err := newContentStream(l.rewrite(&fd.stream, fd.form.content, removed, redirects))
	if err != nil {
		return nil, err
	}
	for k, v := range fd.form.dict {
		switch k {
		case "Length", "Filter", "DecodeParms", "DL", "Resources":
			continue
		}
		sd.Dict[k] = v
	}
	sd.Dict["Resources"] = res

	ref, err := d.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("failed to add form: %w", err)
	}
	return ref, nil
}

// drawnElsewhere reports whether s has a Do of name that is not redirected
func drawnElsewhere(s *stream, name string, redirects map[int]string) bool {
	for i, o := range s.ops {
		if o.name != "Do" || len(o.args) != 1 || o.args[0].name() != name {
			continue
		}
		if _, ok := redirects[i]; !ok {
			return true
		}
	}
	return false
}

// ownSubdict replaces the res entry key by a direct copy of it, so that
// changes do not reach other pages or forms sharing the original
func (d *Document) ownSubdict(res types.Dict, key string) (types.Dict, error) {
	sub := types.NewDict()
	if o, ok := res.Find(key); ok {
		orig, err := d.ctx.DereferenceDict(o)
		if err != nil {
			return nil, fmt.Errorf("resources %s: %w", key, err)
		}
		for k, v := range orig {
			sub[k] = v
		}
	}
	res[key] = sub
	return sub, nil
}

// copyDict returns a shallow copy of d
func copyDict(d types.Dict) types.Dict {
	c := types.NewDict()
	for k, v := range d {
		c[k] = v
	}
	return c
}

func freeName(d types.Dict, prefix string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, ok := d.Find(name); !ok {
			return name
		}
	}
}
