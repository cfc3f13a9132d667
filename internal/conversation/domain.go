package conversation

import "strings"

// domainRules are evaluated in order against lowercased text; the first rule
// with a matching keyword wins. Ordering is part of the contract so repeated
// classification of the same text is reproducible.
var domainRules = []struct {
	domain   Domain
	keywords []string
}{
	{DomainFamily, []string{"marriage", "divorce", "spouse", "partner", "custody", "in-law", "boyfriend", "girlfriend", "family"}},
	{DomainContract, []string{"contract", "debt", "loan", "payment", "invoice", "deposit", "refund", "owes", "owed"}},
	{DomainWorkplace, []string{"boss", "coworker", "colleague", "salary", "workplace", "manager", "fired", "promotion", "business"}},
	{DomainEducation, []string{"school", "teacher", "exam", "student", "university", "homework", "grade"}},
	{DomainHealth, []string{"doctor", "hospital", "treatment", "diagnosis", "therapy", "medication", "health"}},
}

// DetectDomain maps recent conversation text to a topic label. It is a pure
// function; callers cache the result on the conversation and never re-run it
// once the domain is set.
func DetectDomain(contextText string) Domain {
	text := strings.ToLower(contextText)
	for _, rule := range domainRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.domain
			}
		}
	}
	return DomainGeneral
}

// DomainTitle renders a domain label as the persona descriptor used in
// system prompts.
func DomainTitle(d Domain) string {
	switch d {
	case DomainFamily:
		return "family and relationship disputes"
	case DomainContract:
		return "contract and debt disputes"
	case DomainWorkplace:
		return "business and workplace conflicts"
	case DomainEducation:
		return "education-related disagreements"
	case DomainHealth:
		return "health and care disagreements"
	default:
		return "interpersonal disputes"
	}
}
