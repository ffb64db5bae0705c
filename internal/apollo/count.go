package apollo

import "encoding/json"

// Result counts recorded in search history. Each operation reports its
// cardinality differently, so each has its own counter. A body that does not
// have the expected shape counts as zero.

// CountPaginationTotal reads pagination.total_entries, used by the people,
// company and news searches.
func CountPaginationTotal(body json.RawMessage) int {
	var v struct {
		Pagination *struct {
			TotalEntries float64 `json:"total_entries"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &v); err != nil || v.Pagination == nil {
		return 0
	}
	return int(v.Pagination.TotalEntries)
}

// CountMatches is the length of the "matches" array from bulk enrichment.
func CountMatches(body json.RawMessage) int {
	var v struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return 0
	}
	return len(v.Matches)
}

// CountJobPostings is the length of the "job_postings" array.
func CountJobPostings(body json.RawMessage) int {
	var v struct {
		JobPostings []json.RawMessage `json:"job_postings"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return 0
	}
	return len(v.JobPostings)
}

// CountOne is used by single-entity lookups.
func CountOne(json.RawMessage) int { return 1 }
