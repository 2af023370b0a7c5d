package evaluator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"roleplay-insights-go/internal/inference"
	"roleplay-insights-go/internal/knowledge"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/retry"
	"roleplay-insights-go/internal/types"
)

type Retriever interface {
	Retrieve(ctx context.Context, scenarioID, query string, topK int) ([]knowledge.Result, error)
}

type ReferenceResult struct {
	Check      *types.ReferenceCheckRecord
	Checked    bool
	SkipReason string
	Error      string
}

// ReferenceEvaluator checks each user statement against the scenario's
// reference documents. A failure on one message never affects the others.
type ReferenceEvaluator struct {
	retriever Retriever
	judge     inference.Generator
	Parallel  int
	Policy    retry.Policy
	log       *logger.Logger
}

func NewReferenceEvaluator(retriever Retriever, judge inference.Generator, parallel int, log *logger.Logger) *ReferenceEvaluator {
	if log == nil {
		log = logger.Discard()
	}
	if parallel < 1 {
		parallel = 1
	}
	return &ReferenceEvaluator{
		retriever: retriever,
		judge:     judge,
		Parallel:  parallel,
		Policy:    retry.RateLimit(),
		log:       log.Component("reference"),
	}
}

func (e *ReferenceEvaluator) Evaluate(ctx context.Context, actx types.AnalysisContext) ReferenceResult {
	if !actx.HasKnowledgeBase {
		return ReferenceResult{SkipReason: types.SkipNoKnowledgeBase}
	}
	userMsgs := actx.UserMessages()
	if len(userMsgs) == 0 {
		return ReferenceResult{SkipReason: types.SkipNoUserMessages}
	}

	log := e.log.WithSession(actx.SessionID, actx.UserID)
	convo := conversationText(actx.Messages, actx.Language, true)
	items := make([]types.ReferenceCheckItem, len(userMsgs))

	var g errgroup.Group
	g.SetLimit(e.Parallel)
	for i, m := range userMsgs {
		g.Go(func() error {
			items[i] = e.checkMessage(ctx, log, actx, m.Content, convo)
			return nil
		})
	}
	_ = g.Wait()

	related := 0
	for _, it := range items {
		if it.Related {
			related++
		}
	}
	check := &types.ReferenceCheckRecord{
		Messages: items,
		Summary: types.ReferenceCheckSummary{
			TotalMessages:   len(userMsgs),
			CheckedMessages: len(items),
			RelatedCount:    related,
		},
	}
	log.WithField("checked", len(items)).WithField("related", related).Info("reference check done")
	return ReferenceResult{Check: check, Checked: true}
}

func (e *ReferenceEvaluator) checkMessage(ctx context.Context, log *logger.Logger, actx types.AnalysisContext, message, convo string) types.ReferenceCheckItem {
	item := types.ReferenceCheckItem{Message: message}

	docs, err := e.retriever.Retrieve(ctx, actx.ScenarioID, message, referenceTopK)
	if err != nil {
		log.WithError(err).Warn("reference retrieval failed")
		docs = nil
	}
	if len(docs) == 0 {
		item.ReviewComment = noReferenceComment(actx.Language)
		return item
	}

	contents := make([]string, 0, referenceDocsJoined)
	for _, d := range docs {
		if d.Content == "" {
			continue
		}
		contents = append(contents, d.Content)
		if len(contents) == referenceDocsJoined {
			break
		}
	}
	document := strings.Join(contents, "\n---\n")
	item.RelatedDocument = truncateRunes(document, maxReferenceRunes)

	reply, err := retry.Do(ctx, e.Policy, log, func(ctx context.Context) (string, error) {
		return e.judge.GenerateText(ctx, referenceSystemPrompt(actx.Language), referencePrompt(message, document, convo, actx.Language))
	})
	if err != nil {
		log.WithError(err).Warn("reference judge failed")
		item.ReviewComment = judgeErrorComment(actx.Language, err)
		return item
	}

	related, comment, ok := parseJudgement(reply)
	if !ok {
		item.ReviewComment = judgeParseComment(actx.Language)
		return item
	}
	item.Related = related
	item.ReviewComment = comment
	return item
}

func parseJudgement(reply string) (related bool, comment string, ok bool) {
	var v struct {
		Related *bool  `json:"related"`
		Comment string `json:"comment"`
	}
	if !inference.DecodeObject(reply, &v) || v.Related == nil {
		return false, "", false
	}
	return *v.Related, v.Comment, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
