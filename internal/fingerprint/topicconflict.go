package fingerprint

import "strings"

// subjectDomain groups a curated set of named subjects that are mutually
// exclusive within one kind of story: two titles that each name a
// different subject from the same domain describe different events, even
// when their titles are lexically similar (spec.md §4.2).
type subjectDomain struct {
	// triggers, if non-empty, must appear in at least one of the two
	// titles before the domain is considered at all (e.g. "earthquake"
	// must be present before two place names are treated as competing
	// disaster locations).
	triggers []string
	subjects map[string]string // lowercase entity text -> canonical subject key
}

var subjectDomains = []subjectDomain{
	{
		// Heads of state/government: two different leaders mentioned by
		// name belong to two different nations' stories.
		subjects: map[string]string{
			"biden": "us", "trump": "us", "harris": "us",
			"putin": "russia",
			"zelensky": "ukraine", "zelenskyy": "ukraine",
			"xi": "china", "modi": "india",
			"starmer": "uk", "sunak": "uk",
			"macron": "france", "scholz": "germany",
			"netanyahu": "israel", "khamenei": "iran",
		},
	},
	{
		triggers: []string{"earthquake", "flood", "wildfire", "hurricane", "tsunami", "cyclone", "eruption", "quake"},
		subjects: map[string]string{
			"turkey": "turkey", "japan": "japan", "california": "california",
			"philippines": "philippines", "indonesia": "indonesia",
			"haiti": "haiti", "morocco": "morocco", "taiwan": "taiwan",
			"syria": "syria", "nepal": "nepal",
		},
	},
	{
		triggers: []string{"final", "championship", "match", "tournament", "cup", "playoffs", "semifinal"},
		subjects: map[string]string{
			"lakers": "lakers", "celtics": "celtics", "yankees": "yankees",
			"dodgers": "dodgers", "madrid": "real_madrid", "barcelona": "barcelona",
			"chelsea": "chelsea", "arsenal": "arsenal", "liverpool": "liverpool",
		},
	},
}

func containsWord(title, word string) bool {
	return strings.Contains(strings.ToLower(title), word)
}

// domainSubject scans title's tokens (lower-cased) for the first match in
// a domain's subject table.
func domainSubject(title string, d subjectDomain) (string, bool) {
	for _, tok := range tokenize(title) {
		if subj, ok := d.subjects[strings.ToLower(tok)]; ok {
			return subj, true
		}
	}
	return "", false
}

func domainTriggered(titleA, titleB string, d subjectDomain) bool {
	if len(d.triggers) == 0 {
		return true
	}
	for _, trig := range d.triggers {
		if containsWord(titleA, trig) || containsWord(titleB, trig) {
			return true
		}
	}
	return false
}

// TopicConflict reports whether titleA and titleB each name a different
// recognised subject from the same domain (two different national
// leaders, two different disasters, two different sports teams). This
// catches high-similarity-score matches that are coincidentally lexically
// similar but describe different real-world events (spec.md §4.2).
func TopicConflict(titleA, titleB string) bool {
	for _, d := range subjectDomains {
		if !domainTriggered(titleA, titleB, d) {
			continue
		}
		subjA, okA := domainSubject(titleA, d)
		subjB, okB := domainSubject(titleB, d)
		if okA && okB && subjA != subjB {
			return true
		}
	}
	return false
}
