package predictor

// Recommendations returns follow-up advice for a lead. Every rule is
// independent, so several can fire; they are emitted in a fixed order.
func Recommendations(factors Factors, probability float64) []string {
	recs := []string{}

	switch stringFactor(factors, "budget_range") {
	case "low":
		recs = append(recs, "💡 Consider offering a starter package or trial to increase engagement")
	case "enterprise":
		recs = append(recs, "🎯 Focus on ROI demonstration and case studies from similar enterprise clients")
	}

	switch stringFactor(factors, "timeline") {
	case "immediate":
		recs = append(recs, "⚡ Prioritize this lead - immediate timeline indicates high urgency")
	case "long":
		recs = append(recs, "📅 Set up a long-term nurturing campaign with regular check-ins")
	}

	switch stringFactor(factors, "decision_maker") {
	case "no":
		recs = append(recs, "🔍 Identify and connect with the actual decision maker")
	case "unknown":
		recs = append(recs, "❓ Research the company structure to identify decision makers")
	}

	if !truthy(factors["has_demo"]) {
		recs = append(recs, "🎬 Offer a personalized demo to showcase value")
	}
	if !truthy(factors["has_proposal"]) {
		recs = append(recs, "📄 Prepare a customized proposal based on their needs")
	}

	switch stringFactor(factors, "lead_source") {
	case "cold_call":
		recs = append(recs, "📞 Follow up with personalized content and value proposition")
	case "referral":
		recs = append(recs, "🤝 Leverage the referral relationship for stronger credibility")
	}

	if probability < 30 {
		recs = append(recs, "⚠️ Low conversion probability - focus on lead nurturing and education")
	} else if probability > 70 {
		recs = append(recs, "🎉 High conversion probability - prioritize this lead for quick closure")
	}

	return recs
}

func stringFactor(factors Factors, name string) string {
	s, _ := factors[name].(string)
	return s
}
