package prompt

import "k8s.io/klog/v2"

// Service 提示词生成服务。持有固定策略包，对外按用途出各阶段提示词。
type Service struct {
	policy *PolicyPack
	router Router

	intentHistoryWindow int
}

func NewService(intentHistoryWindow int) *Service {
	if intentHistoryWindow <= 0 {
		intentHistoryWindow = 20
	}
	return &Service{
		policy:              DefaultPolicyPack(),
		intentHistoryWindow: intentHistoryWindow,
	}
}

// ClassifyIntentPrompt Stage 1 意图分类提示词。
// 仅包含角色、目标、约束与意图规则，其余段落对分类无益徒增长度。
func (s *Service) ClassifyIntentPrompt(userMessage string, documents []DocumentContext, project *ProjectContext, history []HistoryMessage) string {
	prompt := NewBuilder(s.policy, IntentClassificationTemplate{}, &Runtime{
		UserMessage:   userMessage,
		HistoryWindow: s.intentHistoryWindow,
	}).
		WithDocuments(documents).
		WithProjectContext(project).
		WithChatHistory(history).
		WithSections(SectionObjective, SectionConstraints, SectionIntent).
		Build()
	klog.V(6).Infof("生成意图分类提示词: %d 字符", len(prompt))
	return prompt
}

// DecisionPrompt Stage 2 决策提示词。意图规则已在 Stage 1 用过，这里不再包含。
func (s *Service) DecisionPrompt(userMessage string, documents []DocumentContext, project *ProjectContext, intentType string, meta *IntentMetadata, date DateContext) string {
	prompt := NewBuilder(s.policy, s.router.RouteDecision(intentType), &Runtime{
		UserMessage: userMessage,
	}).
		WithDocuments(documents).
		WithProjectContext(project).
		WithIntentMetadata(meta).
		WithDate(date).
		WithSections(
			SectionObjective,
			SectionConstraints,
			SectionDocuments,
			SectionWebSearch,
			SectionConversation,
			SectionSafety,
			SectionOutputFormat,
		).
		Build()
	klog.V(6).Infof("生成决策提示词: intent_type=%s, %d 字符", intentType, len(prompt))
	return prompt
}

// RewritePrompt 文档改写提示词
func (s *Service) RewritePrompt(rt *Runtime, editScope string) string {
	prompt := NewBuilder(s.policy, s.router.RouteRewrite(editScope), rt).Build()
	klog.V(6).Infof("生成改写提示词: edit_scope=%s, %d 字符", editScope, len(prompt))
	return prompt
}

// ConversationalPrompt 纯对话提示词，不带 JSON 输出格式段落
func (s *Service) ConversationalPrompt(userMessage, context, webSearchResults string, date DateContext) string {
	return NewBuilder(s.policy, s.router.RouteConversational(webSearchResults != ""), &Runtime{
		UserMessage:      userMessage,
		Context:          context,
		WebSearchResults: webSearchResults,
		Date:             date,
	}).
		WithSections(SectionConstraints, SectionConversation).
		Build()
}
