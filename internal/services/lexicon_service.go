package services

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"materialhub/internal/metrics"
	"materialhub/internal/models"
	"materialhub/internal/storage"

	"github.com/sirupsen/logrus"
)

// LexiconKind 违禁词 / 违规行为
type LexiconKind string

const (
	LexiconWords     LexiconKind = "words"
	LexiconBehaviors LexiconKind = "behaviors"
)

var termSeparator = regexp.MustCompile(`[,，\s]+`)

func SeedLexicon() models.AuditLexicon {
	return models.AuditLexicon{
		Words:     []string{"极限词", "第一", "顶级", "最", "绝对", "独家", "首选", "无敌"},
		Behaviors: []string{"虚假宣传", "诱导点击", "低俗内容", "政治敏感", "侵权行为"},
	}
}

// LexiconService 审核敏感词库
type LexiconService struct {
	mu     sync.Mutex
	lex    models.AuditLexicon
	snap   snapshotter
	logger *logrus.Logger
}

func NewLexiconService(ctx context.Context, kv storage.KV, logger *logrus.Logger) (*LexiconService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	s := &LexiconService{snap: newSnapshotter(kv, NamespaceLexicon, logger), logger: logger}
	var lex models.AuditLexicon
	found, err := s.snap.load(ctx, &lex)
	if err != nil {
		return nil, err
	}
	if !found {
		lex = SeedLexicon()
	}
	s.lex = cloneLexicon(lex)
	return s, nil
}

func (s *LexiconService) Get() models.AuditLexicon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLexicon(s.lex)
}

// Add 按逗号（中英文）或空白拆分，跳过空项和已存在的词，返回实际新增的词
func (s *LexiconService) Add(ctx context.Context, kind LexiconKind, input string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneLexicon(s.lex)
	list, err := termList(&next, kind)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(*list))
	for _, t := range *list {
		seen[t] = true
	}
	var added []string
	for _, t := range termSeparator.Split(input, -1) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		added = append(added, t)
	}
	if len(added) == 0 {
		return nil, nil
	}
	*list = append(*list, added...)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"kind": kind, "count": len(added)}).Info("lexicon terms added")
	metrics.RecordRuleMutation("lexicon", "add")
	return added, nil
}

func (s *LexiconService) Remove(ctx context.Context, kind LexiconKind, term string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneLexicon(s.lex)
	list, err := termList(&next, kind)
	if err != nil {
		return false, err
	}
	kept := make([]string, 0, len(*list))
	for _, t := range *list {
		if t != term {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(*list) {
		return false, nil
	}
	*list = kept
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	metrics.RecordRuleMutation("lexicon", "remove")
	return true, nil
}

func (s *LexiconService) Clear(ctx context.Context, kind LexiconKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneLexicon(s.lex)
	list, err := termList(&next, kind)
	if err != nil {
		return err
	}
	*list = []string{}
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.WithField("kind", kind).Info("lexicon cleared")
	metrics.RecordRuleMutation("lexicon", "clear")
	return nil
}

func (s *LexiconService) commit(ctx context.Context, next models.AuditLexicon) error {
	if err := s.snap.save(ctx, next); err != nil {
		return err
	}
	s.lex = next
	return nil
}

func termList(l *models.AuditLexicon, kind LexiconKind) (*[]string, error) {
	switch kind {
	case LexiconWords:
		return &l.Words, nil
	case LexiconBehaviors:
		return &l.Behaviors, nil
	default:
		return nil, validationError("unknown lexicon kind %q", kind)
	}
}

func cloneLexicon(in models.AuditLexicon) models.AuditLexicon {
	return models.AuditLexicon{
		Words:     append([]string{}, in.Words...),
		Behaviors: append([]string{}, in.Behaviors...),
	}
}
