package factcheck

import "github.com/nao1215/swiftguard/internal/model"

// SearchResponse is the claim search payload shared by the proxy and the upstream API.
type SearchResponse struct {
	Claims        []Claim `json:"claims"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Claim is one fact-checked claim.
type Claim struct {
	Text        string        `json:"text,omitempty"`
	Claimant    string        `json:"claimant,omitempty"`
	ClaimReview []ClaimReview `json:"claimReview"`
}

// ClaimReview is one publisher's review of a claim.
type ClaimReview struct {
	Publisher     Publisher `json:"publisher"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	TextualRating string    `json:"textualRating,omitempty"`
	LanguageCode  string    `json:"languageCode,omitempty"`
}

// Publisher identifies a fact-checking organization.
type Publisher struct {
	Name string `json:"name"`
	Site string `json:"site"`
}

// Reviews flattens the response into at most limit reviews in claim order.
// The textual rating is left empty; the news verdict prompt forms its own
// judgement from titles and publishers.
func (r *SearchResponse) Reviews(limit int) []model.Review {
	var out []model.Review
	for _, c := range r.Claims {
		for _, cr := range c.ClaimReview {
			if len(out) >= limit {
				return out
			}
			out = append(out, model.Review{
				PublisherName: cr.Publisher.Name,
				PublisherSite: cr.Publisher.Site,
				Title:         cr.Title,
				URL:           cr.URL,
			})
		}
	}
	return out
}
