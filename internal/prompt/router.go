package prompt

// Router 按用途选择模板
type Router struct{}

func (Router) RouteDecision(intentType string) DecisionTemplate {
	if intentType == "" {
		intentType = "conversation"
	}
	return DecisionTemplate{IntentType: intentType}
}

func (Router) RouteRewrite(editScope string) RewriteTemplate {
	return RewriteTemplate{EditScope: editScope}
}

func (Router) RouteConversational(hasWebSearch bool) ConversationalTemplate {
	return ConversationalTemplate{HasWebSearch: hasWebSearch}
}
