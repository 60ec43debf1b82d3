package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"kazini/internal/model/chat"
	"kazini/internal/repository"
)

// NoAssessmentContext 用户没有测评数据时的上下文
const NoAssessmentContext = "No assessment data"

// ContextBuilder 把用户测评快照整理为一行提示上下文
type ContextBuilder struct {
	reader AssessmentReader
}

// NewContextBuilder 创建上下文构建器，reader 为 nil 时总是返回 NoAssessmentContext
func NewContextBuilder(reader AssessmentReader) *ContextBuilder {
	return &ContextBuilder{reader: reader}
}

// Build 构建用户上下文
// 上下文仅作参考：读取失败记录日志后按无测评处理，不返回错误
func (b *ContextBuilder) Build(ctx context.Context, userID string) string {
	if b.reader == nil {
		return NoAssessmentContext
	}

	a, err := b.reader.FindAssessment(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load assessment, continuing without context")
		}
		return NoAssessmentContext
	}
	return FormatAssessment(a)
}

// FormatAssessment 格式化测评快照，缺失字段不输出
func FormatAssessment(a *chat.Assessment) string {
	if a == nil {
		return NoAssessmentContext
	}

	pieces := make([]string, 0, 5)
	if a.Field != "" {
		pieces = append(pieces, "Field="+a.Field)
	}
	if a.GPA != nil {
		pieces = append(pieces, "GPA="+strconv.FormatFloat(*a.GPA, 'f', -1, 64))
	}
	if a.CodingSkills != nil {
		pieces = append(pieces, fmt.Sprintf("Coding=%d/10", *a.CodingSkills))
	}
	if a.ProblemSolvingSkills != nil {
		pieces = append(pieces, fmt.Sprintf("ProblemSolving=%d/10", *a.ProblemSolvingSkills))
	}
	if a.RecommendedCareer != "" {
		pieces = append(pieces, "RecommendedCareer="+a.RecommendedCareer)
	}

	if len(pieces) == 0 {
		return NoAssessmentContext
	}
	return strings.Join(pieces, "; ")
}
