package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeChatModel struct {
	reply     func(ctx context.Context) (*schema.Message, error)
	calls     int
	lastInput []*schema.Message
	lastOpts  *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastInput = input
	f.lastOpts = model.GetCommonOptions(&model.Options{}, opts...)
	return f.reply(ctx)
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func replyWith(content string) func(context.Context) (*schema.Message, error) {
	return func(context.Context) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}
}

func ptr[T any](v T) *T { return &v }

func TestClient_Generate(t *testing.T) {
	Convey("Generate 调用导师对话链", t, func() {
		ctx := context.Background()
		prompt := Prompt{
			System:    "You are a mentor.",
			Context:   "Field=Biology",
			UserText:  "What career fits a biology major?",
			MaxTokens: 256,
		}

		Convey("成功时返回文本，消息顺序与参数固定", func() {
			fake := &fakeChatModel{reply: replyWith("  Consider research roles.  ")}
			client := NewClientWithModel(fake, ptr(float32(0.2)), time.Second)

			out := client.Generate(ctx, prompt)
			So(out.OK(), ShouldBeTrue)
			So(out.Text, ShouldEqual, "Consider research roles.")

			So(fake.lastInput, ShouldHaveLength, 3)
			So(fake.lastInput[0].Role, ShouldEqual, schema.System)
			So(fake.lastInput[0].Content, ShouldEqual, "You are a mentor.")
			So(fake.lastInput[1].Role, ShouldEqual, schema.System)
			So(fake.lastInput[1].Content, ShouldEqual, "User context: Field=Biology")
			So(fake.lastInput[2].Role, ShouldEqual, schema.User)
			So(fake.lastInput[2].Content, ShouldEqual, prompt.UserText)

			So(fake.lastOpts.MaxTokens, ShouldNotBeNil)
			So(*fake.lastOpts.MaxTokens, ShouldEqual, 256)
			So(fake.lastOpts.Temperature, ShouldNotBeNil)
			So(*fake.lastOpts.Temperature, ShouldAlmostEqual, 0.2, 1e-6)
		})

		Convey("温度为 0 时仍下发，未配置时不下发", func() {
			fake := &fakeChatModel{reply: replyWith("ok")}
			So(NewClientWithModel(fake, ptr(float32(0)), time.Second).Generate(ctx, prompt).OK(), ShouldBeTrue)
			So(fake.lastOpts.Temperature, ShouldNotBeNil)
			So(*fake.lastOpts.Temperature, ShouldEqual, float32(0))

			So(NewClientWithModel(fake, nil, time.Second).Generate(ctx, prompt).OK(), ShouldBeTrue)
			So(fake.lastOpts.Temperature, ShouldBeNil)
		})

		Convey("空白回复视为失败", func() {
			client := NewClientWithModel(&fakeChatModel{reply: replyWith("   ")}, ptr(float32(0.2)), time.Second)
			out := client.Generate(ctx, prompt)
			So(out.OK(), ShouldBeFalse)
			So(out.Reason, ShouldEqual, ReasonEmpty)
			So(out.Text, ShouldBeEmpty)
		})

		Convey("nil 消息视为结构异常", func() {
			fake := &fakeChatModel{reply: func(context.Context) (*schema.Message, error) { return nil, nil }}
			out := NewClientWithModel(fake, ptr(float32(0.2)), time.Second).Generate(ctx, prompt)
			So(out.Reason, ShouldEqual, ReasonMalformed)
		})

		Convey("上游错误归类为 transport", func() {
			fake := &fakeChatModel{reply: func(context.Context) (*schema.Message, error) {
				return nil, errors.New("connection refused")
			}}
			out := NewClientWithModel(fake, ptr(float32(0.2)), time.Second).Generate(ctx, prompt)
			So(out.Reason, ShouldEqual, ReasonTransport)
			So(out.Err, ShouldNotBeNil)
		})

		Convey("超时不重试", func() {
			fake := &fakeChatModel{reply: func(ctx context.Context) (*schema.Message, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}}
			out := NewClientWithModel(fake, ptr(float32(0.2)), 20*time.Millisecond).Generate(ctx, prompt)
			So(out.Reason, ShouldEqual, ReasonTimeout)
			So(fake.calls, ShouldEqual, 1)
		})

		Convey("模型不可用时直接失败", func() {
			out := NewUnavailableClient().Generate(ctx, prompt)
			So(out.OK(), ShouldBeFalse)
			So(errors.Is(out.Err, ErrModelUnavailable), ShouldBeTrue)
		})
	})
}
