package model

// Profile describes the markup of the forum being overlaid and the copy and
// colors of the injected controls. Selectors are best-effort guesses about an
// external document and may drift when the forum changes its templates.
type Profile struct {
	Posts   PostSelectors    `yaml:"posts"`
	Listing ListingSelectors `yaml:"listing"`
	Labels  Labels           `yaml:"labels"`
	Colors  Colors           `yaml:"colors"`
}

// PostSelectors locate the parts of a post on thread pages.
type PostSelectors struct {
	Post        string `yaml:"post"`
	IDAttr      string `yaml:"id_attr"`
	Username    string `yaml:"username"`
	Content     string `yaml:"content"`
	ReportLabel string `yaml:"report_label"`
	// QuoteLabels name the forum's own quote links. They get the neutral
	// button look and are kept right after the report anchor.
	QuoteLabels []string `yaml:"quote_labels"`
}

// ListingSelectors locate thread rows on forum listing pages.
type ListingSelectors struct {
	TitleCell     string `yaml:"title_cell"`
	TitleIDPrefix string `yaml:"title_id_prefix"`
	Row           string `yaml:"row"`
	// Author matches candidate author elements; only those whose inline
	// style declares "cursor: pointer" are treated as usernames.
	Author string `yaml:"author"`
}

// Labels is the button copy.
type Labels struct {
	Like           string `yaml:"like"`
	Unlike         string `yaml:"unlike"`
	Hide           string `yaml:"hide"`
	IgnoreInThread string `yaml:"ignore_in_thread"`
	Ignore         string `yaml:"ignore"`
	HideThread     string `yaml:"hide_thread"`
}

// Colors used for highlights and button states.
type Colors struct {
	Highlight       string `yaml:"highlight"`
	HighlightText   string `yaml:"highlight_text"`
	ThreadHighlight string `yaml:"thread_highlight"`
	Active          string `yaml:"active"`
	Neutral         string `yaml:"neutral"`
	NeutralText     string `yaml:"neutral_text"`
}

// DefaultProfile matches the markup of flashback.org.
func DefaultProfile() Profile {
	return Profile{
		Posts: PostSelectors{
			Post:        "[data-postid]",
			IDAttr:      "data-postid",
			Username:    ".post-user-username",
			Content:     ".post-col.post-right",
			ReportLabel: "Rapportera",
			QuoteLabels: []string{"Citera+", "Citera"},
		},
		Listing: ListingSelectors{
			TitleCell:     "td.td_title[id^='td_title_']",
			TitleIDPrefix: "td_title_",
			Row:           "tr",
			Author:        "span[style*='cursor']",
		},
		Labels: Labels{
			Like:           "Gilla",
			Unlike:         "Ogilla",
			Hide:           "Dölj",
			IgnoreInThread: "Ignorera i tråden",
			Ignore:         "Ignorera",
			HideThread:     "Dölj permanent",
		},
		Colors: Colors{
			Highlight:       "#c1ffd6",
			HighlightText:   "#000",
			ThreadHighlight: "#9cf5ba",
			Active:          "orange",
			Neutral:         "#cccccc6e",
			NeutralText:     "#515151",
		},
	}
}
