package chat

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"kazini/internal/ai"
	"kazini/internal/config"
	"kazini/internal/model/chat"
	"kazini/internal/pkg/cache"
	"kazini/internal/pkg/sqldb"
	chatrepo "kazini/internal/repository/chat"
)

type fakeGenerator struct {
	outcome ai.Outcome
	calls   int
	last    ai.Prompt
}

func (g *fakeGenerator) Generate(_ context.Context, p ai.Prompt) ai.Outcome {
	g.calls++
	g.last = p
	return g.outcome
}

type failingCounter struct{}

func (failingCounter) Get(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func (failingCounter) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func (failingCounter) Expire(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

type fixture struct {
	store   *chatrepo.MemoryStore
	counter *cache.MemoryCounter
	limiter *RateLimiter
	gen     *fakeGenerator
	svc     *SessionService
}

func newFixture(limit int64) *fixture {
	store := chatrepo.NewMemoryStore()
	counter := cache.NewMemoryCounter()
	limiter := NewRateLimiter(counter, 0)
	gen := &fakeGenerator{outcome: ai.Outcome{Text: "Try a data internship."}}
	svc := NewSessionService(store, gen, limiter, NewContextBuilder(store), config.ChatConfig{
		SystemPrompt:     "You are Kazini.",
		DailyLimit:       limit,
		DefaultMaxTokens: 512,
		MaxTokensCap:     4096,
		HistoryPageSize:  2,
	})
	return &fixture{store: store, counter: counter, limiter: limiter, gen: gen, svc: svc}
}

func TestSessionService_HandleTurn(t *testing.T) {
	Convey("HandleTurn", t, func() {
		ctx := context.Background()
		f := newFixture(3)

		Convey("新用户首轮对话创建会话和两条消息", func() {
			res, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "  What should I study?  "})
			So(err, ShouldBeNil)
			So(res.Reply, ShouldEqual, "Try a data internship.")
			So(res.Fallback, ShouldBeFalse)

			conv, err := f.store.FindConversation(ctx, res.ConversationID, "u1")
			So(err, ShouldBeNil)
			So(conv.Title, ShouldNotBeNil)
			So(*conv.Title, ShouldEqual, "Try a data internship.")

			msgs, err := f.store.ListMessages(ctx, res.ConversationID)
			So(err, ShouldBeNil)
			So(msgs, ShouldHaveLength, 2)
			So(msgs[0].Sender, ShouldEqual, chat.SenderUser)
			So(msgs[0].Text, ShouldEqual, "What should I study?")
			So(msgs[1].Sender, ShouldEqual, chat.SenderAssistant)
			So(msgs[1].ID, ShouldEqual, res.MessageID)

			count, err := f.limiter.Check(ctx, "u1")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, int64(1))
		})

		Convey("提示词包含系统指令、上下文和默认 max_tokens", func() {
			coding := 8
			So(f.store.SaveAssessment(ctx, &chat.Assessment{UserID: "u1", Field: "Physics", CodingSkills: &coding}), ShouldBeNil)

			_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hi"})
			So(err, ShouldBeNil)
			So(f.gen.last.System, ShouldEqual, "You are Kazini.")
			So(f.gen.last.Context, ShouldEqual, "Field=Physics; Coding=8/10")
			So(f.gen.last.UserText, ShouldEqual, "hi")
			So(f.gen.last.MaxTokens, ShouldEqual, 512)
		})

		Convey("max_tokens 超过上限时截断", func() {
			_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hi", MaxTokens: 100000})
			So(err, ShouldBeNil)
			So(f.gen.last.MaxTokens, ShouldEqual, 4096)

			_, err = f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hi", MaxTokens: 128})
			So(err, ShouldBeNil)
			So(f.gen.last.MaxTokens, ShouldEqual, 128)
		})

		Convey("空消息被拒绝且不写入", func() {
			_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "   "})
			So(errors.Is(err, ErrEmptyMessage), ShouldBeTrue)
			So(f.gen.calls, ShouldEqual, 0)

			list, err := f.svc.ListConversations(ctx, "u1", 1)
			So(err, ShouldBeNil)
			So(list.Total, ShouldEqual, int64(0))
		})

		Convey("达到每日上限后拒绝且不写入", func() {
			for i := 0; i < 3; i++ {
				_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hello"})
				So(err, ShouldBeNil)
			}

			_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "one more"})
			So(errors.Is(err, ErrRateLimitExceeded), ShouldBeTrue)
			So(f.gen.calls, ShouldEqual, 3)

			list, err := f.svc.ListConversations(ctx, "u1", 1)
			So(err, ShouldBeNil)
			So(list.Total, ShouldEqual, int64(3))

			Convey("其他用户不受影响", func() {
				_, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u2", Text: "hello"})
				So(err, ShouldBeNil)
			})
		})

		Convey("生成超时返回兜底回复，且与存储的回复一致", func() {
			f.gen.outcome = ai.Outcome{Reason: ai.ReasonTimeout, Err: context.DeadlineExceeded}

			res, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "How do I get hired?"})
			So(err, ShouldBeNil)
			So(res.Fallback, ShouldBeTrue)
			So(res.Reply, ShouldEqual, SelectFallback("How do I get hired?", NoAssessmentContext))

			msg, err := f.store.FindMessage(ctx, res.ConversationID, res.MessageID)
			So(err, ShouldBeNil)
			So(msg.Text, ShouldEqual, res.Reply)
			So(msg.Sender, ShouldEqual, chat.SenderAssistant)

			count, _ := f.limiter.Check(ctx, "u1")
			So(count, ShouldEqual, int64(1))
		})

		Convey("相同输入的兜底回复相同", func() {
			f.gen.outcome = ai.Outcome{Reason: ai.ReasonTransport, Err: errors.New("boom")}

			first, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "Any advice?"})
			So(err, ShouldBeNil)
			second, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "Any advice?"})
			So(err, ShouldBeNil)
			So(second.Reply, ShouldEqual, first.Reply)
		})

		Convey("续聊已有会话只设置一次标题", func() {
			first, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hello"})
			So(err, ShouldBeNil)

			f.gen.outcome = ai.Outcome{Text: "A different reply."}
			convID := first.ConversationID
			second, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "and then?", ConversationID: &convID})
			So(err, ShouldBeNil)
			So(second.ConversationID, ShouldEqual, convID)

			conv, _ := f.store.FindConversation(ctx, convID, "u1")
			So(*conv.Title, ShouldEqual, "Try a data internship.")

			msgs, _ := f.store.ListMessages(ctx, convID)
			So(msgs, ShouldHaveLength, 4)
		})

		Convey("他人的会话ID被视为不存在并新建会话", func() {
			owned, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hello"})
			So(err, ShouldBeNil)

			foreignID := owned.ConversationID
			res, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u2", Text: "hello", ConversationID: &foreignID})
			So(err, ShouldBeNil)
			So(res.ConversationID, ShouldNotEqual, foreignID)

			msgs, _ := f.store.ListMessages(ctx, foreignID)
			So(msgs, ShouldHaveLength, 2)
		})

		Convey("计数存储不可用时放行", func() {
			svc := NewSessionService(f.store, f.gen, NewRateLimiter(failingCounter{}, 0), nil, config.ChatConfig{DailyLimit: 1})
			res, err := svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hello"})
			So(err, ShouldBeNil)
			So(res.Reply, ShouldEqual, "Try a data internship.")
			So(f.gen.last.Context, ShouldEqual, NoAssessmentContext)
		})
	})
}

func TestSessionService_Conversations(t *testing.T) {
	Convey("会话查询、反馈与删除", t, func() {
		ctx := context.Background()
		f := newFixture(100)
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		tick := 0
		f.svc.WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		})

		ids := make([]int64, 0, 3)
		for i := 0; i < 3; i++ {
			res, err := f.svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "hello"})
			So(err, ShouldBeNil)
			ids = append(ids, res.ConversationID)
		}

		Convey("按最近活跃时间倒序分页", func() {
			page1, err := f.svc.ListConversations(ctx, "u1", 1)
			So(err, ShouldBeNil)
			So(page1.Total, ShouldEqual, int64(3))
			So(page1.Items, ShouldHaveLength, 2)
			So(page1.Items[0].ID, ShouldEqual, ids[2])
			So(page1.HasNext(), ShouldBeTrue)
			So(page1.HasPrevious(), ShouldBeFalse)

			page2, err := f.svc.ListConversations(ctx, "u1", 2)
			So(err, ShouldBeNil)
			So(page2.Items, ShouldHaveLength, 1)
			So(page2.HasNext(), ShouldBeFalse)
			So(page2.HasPrevious(), ShouldBeTrue)

			_, err = f.svc.ListConversations(ctx, "u1", 3)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = f.svc.ListConversations(ctx, "u1", 0)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = f.svc.ListConversations(ctx, "u1", math.MaxInt)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("其他用户看不到会话", func() {
			list, err := f.svc.ListConversations(ctx, "u2", 1)
			So(err, ShouldBeNil)
			So(list.Items, ShouldBeEmpty)

			_, err = f.svc.ListMessages(ctx, "u2", ids[0])
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("反馈只接受 0 或 1 并可覆盖", func() {
			msgs, err := f.svc.ListMessages(ctx, "u1", ids[0])
			So(err, ShouldBeNil)
			reply := msgs[1]

			So(f.svc.SetFeedback(ctx, "u1", ids[0], reply.ID, 1), ShouldBeNil)
			So(f.svc.SetFeedback(ctx, "u1", ids[0], reply.ID, 0), ShouldBeNil)
			got, _ := f.store.FindMessage(ctx, ids[0], reply.ID)
			So(*got.Feedback, ShouldEqual, 0)

			So(errors.Is(f.svc.SetFeedback(ctx, "u1", ids[0], reply.ID, 2), ErrInvalidFeedback), ShouldBeTrue)
			So(errors.Is(f.svc.SetFeedback(ctx, "u2", ids[0], reply.ID, 1), ErrNotFound), ShouldBeTrue)
			So(errors.Is(f.svc.SetFeedback(ctx, "u1", ids[1], reply.ID, 1), ErrNotFound), ShouldBeTrue)
			So(errors.Is(f.svc.SetFeedback(ctx, "u1", ids[0], 9999, 5), ErrNotFound), ShouldBeTrue)
		})

		Convey("删除会话级联删除消息，他人无法删除", func() {
			So(errors.Is(f.svc.DeleteConversation(ctx, "u2", ids[0]), ErrNotFound), ShouldBeTrue)
			So(f.svc.DeleteConversation(ctx, "u1", ids[0]), ShouldBeNil)

			_, err := f.svc.ListMessages(ctx, "u1", ids[0])
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			msgs, _ := f.store.ListMessages(ctx, ids[0])
			So(msgs, ShouldBeEmpty)
		})
	})
}

// cancellingGenerator 在生成期间取消请求上下文，模拟客户端断开
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) Generate(context.Context, ai.Prompt) ai.Outcome {
	g.cancel()
	return ai.Outcome{Reason: ai.ReasonTransport, Err: context.Canceled}
}

func TestSessionService_ClientDisconnect(t *testing.T) {
	Convey("生成期间请求被取消仍写入助手消息", t, func() {
		db, err := sqldb.Open(&config.StoreConfig{
			Driver:       "sqlite",
			DSN:          "file:client_disconnect?mode=memory&cache=shared",
			MaxOpenConns: 1,
		})
		So(err, ShouldBeNil)
		defer func() { _ = sqldb.Close(db) }()

		store := chatrepo.NewSQLStore(db)
		So(store.AutoMigrate(), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		limiter := NewRateLimiter(cache.NewMemoryCounter(), 0)
		svc := NewSessionService(store, &cancellingGenerator{cancel: cancel}, limiter, NewContextBuilder(store), config.ChatConfig{
			SystemPrompt: "You are Kazini.",
		})

		res, err := svc.HandleTurn(ctx, &TurnRequest{UserID: "u1", Text: "Where do I start?"})
		So(err, ShouldBeNil)
		So(res.Fallback, ShouldBeTrue)

		background := context.Background()
		msgs, err := store.ListMessages(background, res.ConversationID)
		So(err, ShouldBeNil)
		So(msgs, ShouldHaveLength, 2)
		So(msgs[0].Sender, ShouldEqual, chat.SenderUser)
		So(msgs[1].Sender, ShouldEqual, chat.SenderAssistant)
		So(msgs[1].Text, ShouldEqual, res.Reply)

		conv, err := store.FindConversation(background, res.ConversationID, "u1")
		So(err, ShouldBeNil)
		So(conv.HasTitle(), ShouldBeTrue)
		So(*conv.Title, ShouldEqual, deriveTitle(res.Reply))

		count, _ := limiter.Check(background, "u1")
		So(count, ShouldEqual, int64(1))
	})
}

func TestDeriveTitle(t *testing.T) {
	Convey("标题截断为 120 个字符", t, func() {
		So(deriveTitle("short"), ShouldEqual, "short")

		exact := strings.Repeat("a", 120)
		So(deriveTitle(exact), ShouldEqual, exact)

		long := strings.Repeat("é", 130)
		title := deriveTitle(long)
		So(title, ShouldEqual, strings.Repeat("é", 120)+"...")
	})
}
