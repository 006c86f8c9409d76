package prompt

import (
	"sort"
	"strings"
)

// Builder 基于策略、模板与运行时数据组装提示词
type Builder struct {
	policy   *PolicyPack
	template Template
	runtime  *Runtime

	extraBlocks     []Block
	task            string
	examples        string
	includeSections []string
}

func NewBuilder(policy *PolicyPack, template Template, runtime *Runtime) *Builder {
	if runtime == nil {
		runtime = &Runtime{}
	}
	return &Builder{policy: policy, template: template, runtime: runtime}
}

func (b *Builder) AddBlock(title, body string, priority int) *Builder {
	b.extraBlocks = append(b.extraBlocks, Block{title, body, priority})
	return b
}

func (b *Builder) WithTask(task string) *Builder {
	b.task = task
	return b
}

func (b *Builder) WithExamples(examples string) *Builder {
	b.examples = examples
	return b
}

// WithSections 选择要包含的策略段落
func (b *Builder) WithSections(sections ...string) *Builder {
	b.includeSections = sections
	return b
}

func (b *Builder) WithDocuments(documents []DocumentContext) *Builder {
	b.runtime.Documents = documents
	return b
}

func (b *Builder) WithProjectContext(project *ProjectContext) *Builder {
	b.runtime.Project = project
	return b
}

func (b *Builder) WithIntentMetadata(meta *IntentMetadata) *Builder {
	b.runtime.Intent = meta
	return b
}

func (b *Builder) WithChatHistory(history []HistoryMessage) *Builder {
	b.runtime.ChatHistory = history
	return b
}

func (b *Builder) WithWebSearchResults(results string) *Builder {
	b.runtime.WebSearchResults = results
	return b
}

func (b *Builder) WithDate(date DateContext) *Builder {
	b.runtime.Date = date
	return b
}

// Build 渲染最终提示词
func (b *Builder) Build() string {
	policyText := b.policy.Render(b.includeSections, b.task, b.examples)

	if len(b.extraBlocks) > 0 {
		extras := make([]Block, len(b.extraBlocks))
		copy(extras, b.extraBlocks)
		sort.SliceStable(extras, func(i, j int) bool { return extras[i].Priority < extras[j].Priority })
		parts := make([]string, len(extras))
		for i, blk := range extras {
			parts[i] = blk.Render()
		}
		policyText = policyText + "\n\n" + strings.Join(parts, "\n\n")
	}

	return b.template.Render(policyText, b.runtime)
}
