package matching

import (
	"sort"

	"afh-workers/internal/models"
)

const (
	DefaultRankLimit = 20
	MaxRankLimit     = 100
)

// RankOptions filter and page a ranking.
type RankOptions struct {
	Limit         int
	Offset        int
	MinScore      int
	AvailableOnly bool
}

// Ranking is one page of ranked facilities.
type Ranking struct {
	Facilities      []models.RankedFacility
	TotalCandidates int
	TotalMatched    int
}

func (o RankOptions) normalized() RankOptions {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultRankLimit
	case o.Limit > MaxRankLimit:
		o.Limit = MaxRankLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	return o
}

// Rank scores every distinct facility and returns the requested page,
// best match first. The order is total, so equal inputs always rank the same.
func (s *Scorer) Rank(needs models.CareNeeds, facilities []models.Facility, opts RankOptions) Ranking {
	opts = opts.normalized()

	seen := make(map[string]bool, len(facilities))
	matched := make([]models.RankedFacility, 0, len(facilities))
	candidates := 0
	for _, f := range facilities {
		if f.ID == "" || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		candidates++

		if opts.AvailableOnly && f.AvailableBeds <= 0 {
			continue
		}
		score := s.Score(needs, f)
		if score.Overall < opts.MinScore {
			continue
		}
		matched = append(matched, models.RankedFacility{Facility: f, MatchScore: score})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return ranksBefore(matched[i], matched[j])
	})

	out := Ranking{TotalCandidates: candidates, TotalMatched: len(matched), Facilities: []models.RankedFacility{}}
	if opts.Offset >= len(matched) {
		return out
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	for i := opts.Offset; i < end; i++ {
		r := matched[i]
		r.Rank = i + 1
		out.Facilities = append(out.Facilities, r)
	}
	return out
}

// ranksBefore orders by overall score, then distance (unknown last), open
// beds, name and id.
func ranksBefore(a, b models.RankedFacility) bool {
	if a.MatchScore.Overall != b.MatchScore.Overall {
		return a.MatchScore.Overall > b.MatchScore.Overall
	}
	da, db := a.MatchScore.DistanceMiles, b.MatchScore.DistanceMiles
	switch {
	case da != nil && db == nil:
		return true
	case da == nil && db != nil:
		return false
	case da != nil && db != nil && *da != *db:
		return *da < *db
	}
	if a.Facility.AvailableBeds != b.Facility.AvailableBeds {
		return a.Facility.AvailableBeds > b.Facility.AvailableBeds
	}
	if a.Facility.Name != b.Facility.Name {
		return a.Facility.Name < b.Facility.Name
	}
	return a.Facility.ID < b.Facility.ID
}
