package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const overlayFontName = "ScrubHelv"

var disableConfigOnce sync.Once

// Document is an open PDF whose pages can be searched and redacted. It is not
// safe for concurrent use.
type Document struct {
	ctx   *model.Context
	pages map[int]*Page
	fonts map[int]*font
	// users counts the pages drawing each content stream object
	users map[int]int
}

// Open parses data. Validation is relaxed so that the slightly broken files
// many producers write can still be processed.
func Open(data []byte) (doc *Document, err error) {
	disableConfigOnce.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", ErrDocumentParse, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		// the page tree may still be usable even when validation fails
		if err := ctx.EnsurePageCount(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
		}
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrDocumentParse)
	}

	return &Document{ctx: ctx, pages: make(map[int]*Page), fonts: make(map[int]*font)}, nil
}

// NumPages returns the number of pages
func (d *Document) NumPages() int {
	return d.ctx.PageCount
}

// Page returns page n, counting from 1
func (d *Document) Page(n int) (page *Page, err error) {
	if n < 1 || n > d.NumPages() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, n, d.NumPages())
	}
	if p, ok := d.pages[n]; ok {
		return p, nil
	}

	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	dict, _, inh, err := d.ctx.PageDict(n, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	if dict == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", n)
	}

	p := &Page{doc: d, number: n, dict: dict}
	if inh != nil && inh.Resources != nil {
		p.resources = inh.Resources
	} else if o, ok := dict.Find("Resources"); ok {
		p.resources, _ = d.ctx.DereferenceDict(o)
	}
	if err := p.loadContent(); err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}

	d.pages[n] = p
	return p, nil
}

// Save writes the document. With compact set, duplicate and unused objects
// are dropped first.
func (d *Document) Save(w io.Writer, compact bool) error {
	if compact {
		if err := api.OptimizeContext(d.ctx); err != nil {
			return fmt.Errorf("failed to optimize document: %w", err)
		}
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Page is one page of a Document
type Page struct {
	doc       *Document
	number    int
	dict      types.Dict
	resources types.Dict
	refs      []types.IndirectRef
	content   []byte

	layout  *layout
	text    *pageText
	pending []Directive
}

// Number returns the 1-based page number
func (p *Page) Number() int {
	return p.number
}

// Capabilities reports that case-insensitive and de-hyphenated search are
// handled natively.
func (p *Page) Capabilities() Capabilities {
	return Capabilities{IgnoreCase: true, Dehyphenate: true}
}

// Text returns the page text in reading order
func (p *Page) Text() (string, error) {
	if err := p.analyze(); err != nil {
		return "", err
	}
	return p.text.String(), nil
}

// Search returns the boxes of every occurrence of needle
func (p *Page) Search(needle string, opts SearchOptions) ([]Rect, error) {
	if err := p.analyze(); err != nil {
		return nil, err
	}
	return p.text.search(p.layout, needle, opts), nil
}

// AddRedaction queues a region for the next ApplyRedactions
func (p *Page) AddRedaction(d Directive) {
	p.pending = append(p.pending, d)
}

// Pending returns the number of queued regions
func (p *Page) Pending() int {
	return len(p.pending)
}

// ApplyRedactions removes the glyphs inside all queued regions from the page
// content, including text drawn by form XObjects, and paints the regions.
// The page gets a content stream of its own; original streams no other page
// draws are overwritten so the removed text is not kept anywhere in the file.
func (p *Page) ApplyRedactions() (ApplyResult, error) {
	if len(p.pending) == 0 {
		return ApplyResult{}, nil
	}
	if err := p.analyze(); err != nil {
		return ApplyResult{}, err
	}

	res := p.ownResources()
	removed := p.layout.removedGlyphs(p.pending)
	redirects, err := p.doc.copyForms(p.layout, &p.layout.stream, removed, res)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("page %d: %w", p.number, err)
	}

	fontName := ""
	for _, d := range p.pending {
		if d.Overlay != "" {
			name, err := p.ensureOverlayFont(res)
			if err != nil {
				return ApplyResult{}, err
			}
			fontName = name
			break
		}
	}

	content := p.layout.redact(p.content, p.pending, removed, redirects, fontName)
	if err := p.writeContent(content); err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{Regions: len(p.pending), Glyphs: len(removed)}
	p.pending = nil
	p.content = content
	p.layout = nil
	p.text = nil
	return result, nil
}

func (p *Page) analyze() error {
	if p.layout != nil {
		return nil
	}
	l, err := analyze(p.content, resourceDict{doc: p.doc, dict: p.resources})
	if err != nil {
		return fmt.Errorf("page %d: content stream: %w", p.number, err)
	}
	p.layout = l
	p.text = buildText(l)
	return nil
}

// ownResources gives the page a direct resource dictionary of its own so
// that additions do not leak into pages sharing the original
func (p *Page) ownResources() types.Dict {
	res := copyDict(p.resources)
	p.dict.Update("Resources", res)
	p.resources = res
	return res
}

// font resolves a font dictionary, caching indirect ones per document
func (d *Document) font(o types.Object) *font {
	ref, indirect := o.(types.IndirectRef)
	if indirect {
		if f, ok := d.fonts[ref.ObjectNumber.Value()]; ok {
			return f
		}
	}
	var f *font
	if fd, err := d.ctx.DereferenceDict(o); err == nil && fd != nil {
		f = loadFont(d.ctx, fd)
	}
	if indirect {
		d.fonts[ref.ObjectNumber.Value()] = f
	}
	return f
}

func (p *Page) loadContent() error {
	refs, err := contentRefs(p.doc.ctx, p.dict)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, ref := range refs {
		data, err := streamContent(p.doc.ctx, ref)
		if err != nil {
			return fmt.Errorf("content stream %d: %w", ref.ObjectNumber, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	p.refs = refs
	p.content = buf.Bytes()
	return nil
}

// contentRefs returns the content stream objects a page dictionary lists
func contentRefs(ctx *model.Context, dict types.Dict) ([]types.IndirectRef, error) {
	o, ok := dict.Find("Contents")
	if !ok || o == nil {
		return nil, nil
	}

	var parts []types.Object
	switch v := o.(type) {
	case types.IndirectRef:
		obj, err := ctx.Dereference(v)
		if err != nil {
			return nil, err
		}
		if arr, ok := obj.(types.Array); ok {
			parts = arr
		} else {
			parts = []types.Object{v}
		}
	case types.Array:
		parts = v
	default:
		return nil, fmt.Errorf("unexpected Contents type %T", o)
	}

	var refs []types.IndirectRef
	for _, part := range parts {
		if ref, ok := part.(types.IndirectRef); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// contentUsers counts, per content stream object, the pages drawing it
func (d *Document) contentUsers() (map[int]int, error) {
	if d.users != nil {
		return d.users, nil
	}
	users := make(map[int]int)
	for n := 1; n <= d.NumPages(); n++ {
		dict, _, _, err := d.ctx.PageDict(n, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		refs, err := contentRefs(d.ctx, dict)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		for _, ref := range refs {
			users[ref.ObjectNumber.Value()]++
		}
	}
	d.users = users
	return users, nil
}

// writeContent points the page at a new content stream holding data. The
// streams it drew before are emptied once no other page draws them.
func (p *Page) writeContent(data []byte) error {
	users, err := p.doc.contentUsers()
	if err != nil {
		return err
	}
	sd, err := newContentStream(data)
	if err != nil {
		return err
	}

	ctx := p.doc.ctx
	ir, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("failed to add content stream: %w", err)
	}

	for i := range p.refs {
		n := p.refs[i].ObjectNumber.Value()
		if users[n]--; users[n] > 0 {
			continue
		}
		entry, ok := ctx.FindTableEntryForIndRef(&p.refs[i])
		if !ok || entry == nil {
			continue
		}
		empty, err := newContentStream(nil)
		if err != nil {
			return err
		}
		entry.Object = *empty
	}

	users[ir.ObjectNumber.Value()] = 1
	p.refs = []types.IndirectRef{*ir}
	p.dict.Update("Contents", *ir)
	return nil
}

func newContentStream(data []byte) (*types.StreamDict, error) {
	sd := types.NewStreamDict(
		types.NewDict(),
		0,
		nil,
		nil,
		[]types.PDFFilter{{Name: filter.Flate, DecodeParms: nil}},
	)
	sd.InsertName("Filter", filter.Flate)
	sd.Content = data
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode content stream: %w", err)
	}
	n := int64(len(sd.Raw))
	sd.StreamLength = &n
	sd.Update("Length", types.Integer(n))
	return &sd, nil
}

// ensureOverlayFont makes a Helvetica resource available in the page
// resources res and returns its name.
func (p *Page) ensureOverlayFont(res types.Dict) (string, error) {
	ctx := p.doc.ctx

	fonts, err := p.doc.ownSubdict(res, "Font")
	if err != nil {
		return "", fmt.Errorf("page %d fonts: %w", p.number, err)
	}

	name := overlayFontName
	for i := 1; ; i++ {
		o, ok := fonts.Find(name)
		if !ok {
			break
		}
		if d, err := ctx.DereferenceDict(o); err == nil && isOverlayFont(d) {
			return name, nil
		}
		name = fmt.Sprintf("%s%d", overlayFontName, i)
	}

	fd := types.NewDict()
	fd.InsertName("Type", "Font")
	fd.InsertName("Subtype", "Type1")
	fd.InsertName("BaseFont", "Helvetica")
	fd.InsertName("Encoding", "WinAnsiEncoding")
	fonts.Insert(name, fd)

	return name, nil
}

func isOverlayFont(d types.Dict) bool {
	base, enc := d.NameEntry("BaseFont"), d.NameEntry("Encoding")
	return base != nil && *base == "Helvetica" && enc != nil && *enc == "WinAnsiEncoding"
}
