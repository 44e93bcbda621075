package collector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ReviewGoat/internal/automation"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// RawReview holds the field strings read from one review card.
type RawReview struct {
	Reviewer string   `json:"reviewer"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Date     string   `json:"date"`
	Verified bool     `json:"verified"`
	Location string   `json:"location"`
	Stars    int      `json:"stars"`
	Images   []string `json:"images"`
}

// Review converts raw fields into a normalized Review.
func (r RawReview) Review() types.Review {
	return types.Review{
		Reviewer: collapseSpace(r.Reviewer),
		Rating:   strconv.Itoa(r.Stars),
		Title:    collapseSpace(r.Title),
		Text:     strings.TrimSpace(r.Text),
		Date:     collapseSpace(r.Date),
		Verified: r.Verified,
		Images:   normalizeImages(r.Images),
		Location: collapseSpace(r.Location),
	}
}

// Extractor reads one review card.
type Extractor interface {
	Extract(card automation.Element) (RawReview, error)
	Name() string
}

// NewExtractor returns the extractor registered under name.
func NewExtractor(name string, sel Selectors) (Extractor, error) {
	switch name {
	case "", "script":
		return &ScriptExtractor{sel: sel}, nil
	case "html":
		return &HTMLExtractor{sel: sel}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// cardScript runs with `this` bound to the card element and receives
// the Selectors as its only argument.
const cardScript = `function (sel) {
	const text = (s) => { const n = this.querySelector(s); return n ? n.textContent.trim() : ''; };
	const images = [];
	this.querySelectorAll(sel.imageLink).forEach((a) => {
		if (a.href) images.push(a.href);
		const img = a.querySelector('img');
		if (img && img.src) images.push(img.src);
	});
	return {
		reviewer: text(sel.reviewer),
		title: text(sel.title),
		text: text(sel.body),
		date: text(sel.date),
		verified: this.querySelector(sel.verified) !== null,
		location: text(sel.location),
		stars: this.querySelectorAll(sel.filledStar).length,
		images: images,
	};
}`

// ScriptExtractor evaluates a script inside the page against each card.
type ScriptExtractor struct {
	sel Selectors
}

func (e *ScriptExtractor) Name() string { return "script" }

func (e *ScriptExtractor) Extract(card automation.Element) (RawReview, error) {
	var raw RawReview
	out, err := card.Eval(cardScript, e.sel)
	if err != nil {
		return raw, err
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return raw, fmt.Errorf("decode card: %w", err)
	}
	return raw, nil
}

// HTMLExtractor parses each card's outer HTML with goquery.
type HTMLExtractor struct {
	sel Selectors
}

func (e *HTMLExtractor) Name() string { return "html" }

func (e *HTMLExtractor) Extract(card automation.Element) (RawReview, error) {
	html, err := card.HTML()
	if err != nil {
		return RawReview{}, err
	}
	return e.ExtractHTML(html)
}

// ExtractHTML reads the fields of a card given its markup.
func (e *HTMLExtractor) ExtractHTML(html string) (RawReview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return RawReview{}, fmt.Errorf("parse card: %w", err)
	}
	root := doc.Selection

	text := func(sel string) string {
		return strings.TrimSpace(root.Find(sel).First().Text())
	}

	raw := RawReview{
		Reviewer: text(e.sel.Reviewer),
		Title:    text(e.sel.Title),
		Text:     text(e.sel.Body),
		Date:     text(e.sel.Date),
		Verified: root.Find(e.sel.Verified).Length() > 0,
		Location: text(e.sel.Location),
		Stars:    root.Find(e.sel.FilledStar).Length(),
	}

	root.Find(e.sel.ImageLink).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			raw.Images = append(raw.Images, href)
		}
		if src, ok := a.Find("img").First().Attr("src"); ok {
			raw.Images = append(raw.Images, src)
		}
	})

	return raw, nil
}
