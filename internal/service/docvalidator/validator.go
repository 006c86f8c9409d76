// Package docvalidator 对文档改写与创建做结构校验。
// 只校验结构，不推断意图：意图判断交给 intentvalidator。
package docvalidator

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrorCategory 校验错误类别
type ErrorCategory string

const (
	CategorySectionRemoval   ErrorCategory = "section_removal"
	CategoryStructuralChange ErrorCategory = "structural_change"
	CategoryContentReduction ErrorCategory = "content_reduction"
	CategoryTechnical        ErrorCategory = "technical"
)

// checkable 类别的错误可以交给意图校验器进一步判断是否为用户本意
func (c ErrorCategory) Checkable() bool {
	switch c {
	case CategorySectionRemoval, CategoryStructuralChange, CategoryContentReduction:
		return true
	}
	return false
}

// Error 一条校验错误
type Error struct {
	Category ErrorCategory
	Message  string
}

// ChangeDetails 原文与新文之间的结构差异
type ChangeDetails struct {
	MissingSections      []string
	AddedSections        []string
	OriginalSectionCount int
	NewSectionCount      int
	OriginalLength       int
	NewLength            int
	ReductionPct         float64
}

// Result 校验结果。每次校验新建，之后只读。
type Result struct {
	IsValid  bool
	Errors   []Error
	Warnings []string
	Details  ChangeDetails
}

// Messages 所有错误的文本形式
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// HasCheckableErrors 是否存在可做意图比对的错误
func (r *Result) HasCheckableErrors() bool {
	for _, e := range r.Errors {
		if e.Category.Checkable() {
			return true
		}
	}
	return false
}

// CheckableErrors 仅返回可做意图比对的错误
func (r *Result) CheckableErrors() []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Category.Checkable() {
			out = append(out, e)
		}
	}
	return out
}

// Thresholds 结构校验阈值
type Thresholds struct {
	SectionLossErrorPct float64 // 丢失章节占比超过此值判为错误，否则仅告警
	HeadingCountFloor   float64 // 新标题数量低于原数量的此比例判为错误
	LengthFloor         float64 // 新长度低于原长度的此比例判为错误
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SectionLossErrorPct: 10,
		HeadingCountFloor:   0.8,
		LengthFloor:         0.1,
	}
}

// Validator 文档结构校验器
type Validator struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) *Validator {
	if thresholds.SectionLossErrorPct <= 0 {
		thresholds.SectionLossErrorPct = 10
	}
	if thresholds.HeadingCountFloor <= 0 {
		thresholds.HeadingCountFloor = 0.8
	}
	if thresholds.LengthFloor <= 0 {
		thresholds.LengthFloor = 0.1
	}
	return &Validator{thresholds: thresholds}
}

// 终稿里不应残留的占位符
var placeholders = []string{
	"url-to-image",
	"TODO",
	"FIXME",
	"[placeholder]",
	"[INSERT",
	"PLACEHOLDER",
	"XXX",
	"TBD",
}

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	imagePattern   = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
)

// IsValidMarkdown 基础的 markdown 合法性检查。不是完整的解析器。
func IsValidMarkdown(content string) bool {
	if content == "" {
		return true
	}

	if strings.Count(content, "```")%2 != 0 {
		return false
	}

	for _, m := range linkPattern.FindAllStringSubmatch(content, -1) {
		if strings.TrimSpace(m[1]) == "" || strings.TrimSpace(m[2]) == "" {
			return false
		}
	}
	for _, m := range imagePattern.FindAllStringSubmatch(content, -1) {
		if strings.TrimSpace(m[2]) == "" {
			return false
		}
	}
	return true
}

// ExtractHeadings 提取全部 markdown 标题文本
func ExtractHeadings(content string) []string {
	var headings []string
	for _, line := range strings.Split(content, "\n") {
		if m := headingPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			headings = append(headings, strings.TrimSpace(m[1]))
		}
	}
	return headings
}

func headingSet(headings []string) map[string]bool {
	set := make(map[string]bool, len(headings))
	for _, h := range headings {
		set[h] = true
	}
	return set
}

// ValidateRewrite 校验改写结果。strict 模式下额外检查链接与图片丢失。
func (v *Validator) ValidateRewrite(original, candidate string, strict bool) *Result {
	var errs []Error
	var warnings []string

	if !IsValidMarkdown(candidate) {
		errs = append(errs, Error{CategoryTechnical,
			"Output is not valid markdown (unclosed code blocks, malformed links/images)"})
	}

	for _, p := range placeholders {
		if strings.Contains(candidate, p) {
			errs = append(errs, Error{CategoryTechnical,
				fmt.Sprintf("Found placeholder in output: %s", p)})
		}
	}

	originalHeadings := ExtractHeadings(original)
	newHeadings := ExtractHeadings(candidate)
	originalSet := headingSet(originalHeadings)
	newSet := headingSet(newHeadings)

	var missing, added []string
	for _, h := range originalHeadings {
		if !newSet[h] {
			missing = append(missing, h)
		}
	}
	for _, h := range newHeadings {
		if !originalSet[h] {
			added = append(added, h)
		}
	}

	details := ChangeDetails{
		MissingSections:      missing,
		AddedSections:        added,
		OriginalSectionCount: len(originalSet),
		NewSectionCount:      len(newSet),
		OriginalLength:       len(original),
		NewLength:            len(candidate),
	}
	if len(original) > 0 {
		details.ReductionPct = 100 - float64(len(candidate))/float64(len(original))*100
	}

	if len(missing) > 0 && len(originalSet) > 0 {
		lostPct := float64(len(missing)) / float64(len(originalSet)) * 100
		if lostPct > v.thresholds.SectionLossErrorPct {
			shown := missing
			more := ""
			if len(shown) > 5 {
				more = fmt.Sprintf(" and %d more", len(shown)-5)
				shown = shown[:5]
			}
			errs = append(errs, Error{CategorySectionRemoval,
				fmt.Sprintf("Lost %d sections (%.1f%% of document): %s%s. This suggests content was accidentally removed.",
					len(missing), lostPct, strings.Join(shown, ", "), more)})
		} else {
			shown := missing
			if len(shown) > 3 {
				shown = shown[:3]
			}
			warnings = append(warnings, "Missing sections from original: "+strings.Join(shown, ", "))
		}
	}

	if len(originalSet) > 0 && len(newSet) > 0 &&
		float64(len(newSet)) < float64(len(originalSet))*v.thresholds.HeadingCountFloor {
		errs = append(errs, Error{CategoryStructuralChange,
			fmt.Sprintf("Document structure significantly changed: Original had %d sections, new has %d sections. This suggests content was accidentally removed.",
				len(originalSet), len(newSet))})
	}

	if len(original) > 0 && float64(len(candidate)) < float64(len(original))*v.thresholds.LengthFloor {
		errs = append(errs, Error{CategoryContentReduction,
			fmt.Sprintf("Content seems too short - lost %.1f%% of content. This may indicate content was accidentally removed.",
				details.ReductionPct)})
	}

	if strict {
		if n := countMissingPairs(linkPattern, original, candidate); n > 0 {
			warnings = append(warnings, fmt.Sprintf("Missing links from original: %d links", n))
		}
		if n := countMissingPairs(imagePattern, original, candidate); n > 0 {
			warnings = append(warnings, fmt.Sprintf("Missing images from original: %d images", n))
		}
	}

	return &Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
		Details:  details,
	}
}

func countMissingPairs(pattern *regexp.Regexp, original, candidate string) int {
	newSet := map[string]bool{}
	for _, m := range pattern.FindAllString(candidate, -1) {
		newSet[m] = true
	}
	seen := map[string]bool{}
	missing := 0
	for _, m := range pattern.FindAllString(original, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		if !newSet[m] {
			missing++
		}
	}
	return missing
}

// ValidateCreate 校验新建文档的名称与内容
func (v *Validator) ValidateCreate(name, content string) *Result {
	var errs []Error

	if strings.TrimSpace(name) == "" {
		errs = append(errs, Error{CategoryTechnical, "Document name is required and cannot be empty"})
	}
	if len(strings.TrimSpace(name)) > 200 {
		errs = append(errs, Error{CategoryTechnical, "Document name is too long (max 200 characters)"})
	}
	if content != "" && !IsValidMarkdown(content) {
		errs = append(errs, Error{CategoryTechnical, "Content is not valid markdown"})
	}
	if content != "" {
		for _, p := range placeholders {
			if strings.Contains(content, p) {
				errs = append(errs, Error{CategoryTechnical,
					fmt.Sprintf("Found placeholder in new document: %s", p)})
			}
		}
	}

	return &Result{
		IsValid: len(errs) == 0,
		Errors:  errs,
		Details: ChangeDetails{NewLength: len(content), NewSectionCount: len(headingSet(ExtractHeadings(content)))},
	}
}
