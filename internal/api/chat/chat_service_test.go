package chat

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/prompts"
	"github.com/waynai/waynai-go/internal/types"
)

type fakeAggregator struct {
	block types.ContextBlock
	calls []string
}

func (f *fakeAggregator) BuildFromIntent(ctx context.Context, in types.IntentWithSearch) types.ContextBlock {
	f.calls = append(f.calls, "intent")
	return f.block
}

func (f *fakeAggregator) BuildFromAreaHints(ctx context.Context, query string, hints []types.AreaHint) types.ContextBlock {
	f.calls = append(f.calls, "hints")
	return f.block
}

func (f *fakeAggregator) BuildForChat(ctx context.Context, regionCode, subRegionCode, keyword string) types.ContextBlock {
	f.calls = append(f.calls, "chat:"+regionCode+"/"+subRegionCode+"/"+keyword)
	return f.block
}

func (f *fakeAggregator) DefaultArea() types.AreaRef {
	return types.AreaRef{Name: "부산광역시", Code: "26"}
}

type fakeGenerator struct {
	response string
	prompts  []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, req types.GenerationRequest) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	return f.response, nil
}

func testStore() *prompts.Store {
	return prompts.NewStoreFromMap(map[string]string{
		prompts.KeyChat: "질문: ${query}\n대화: ${multiturn}\n자료: ${context}",
	})
}

func TestFormatMultiturn(t *testing.T) {
	tests := []struct {
		name  string
		turns []types.ChatTurn
		want  string
	}{
		{
			name:  "no history",
			turns: nil,
			want:  "이전 대화가 없습니다.",
		},
		{
			name: "user and assistant turns",
			turns: []types.ChatTurn{
				{Role: types.RoleUser, Content: "해운대 맛집 알려줘"},
				{Role: types.RoleAssistant, Content: "해운대 근처 횟집을 추천드립니다."},
			},
			want: "사용자: 해운대 맛집 알려줘\n상담사: 해운대 근처 횟집을 추천드립니다.",
		},
		{
			name: "unknown role renders as assistant",
			turns: []types.ChatTurn{
				{Role: types.ChatRole("system"), Content: "안내"},
			},
			want: "상담사: 안내",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMultiturn(tt.turns))
		})
	}
}

func TestProcessMessageBuildsPromptAndStreams(t *testing.T) {
	agg := &fakeAggregator{
		block: types.ContextBlock{Groups: []types.ContextGroup{{
			Label:   "관광지 정보",
			Records: []types.SpotRecord{{Name: "해운대해수욕장"}},
		}}},
	}
	gen := &fakeGenerator{response: "해운대해수욕장 산책을 추천합니다."}
	stage := generativeAI.NewGenerationStage(gen, slog.Default())
	svc := NewChatService(agg, testStore(), stage, 0.7, 0, slog.Default())

	out, err := svc.ProcessMessage(context.Background(), types.ChatRequest{
		Message:       "바다 근처 산책로 있어?",
		SessionID:     "sess-1",
		RegionCode:    "26",
		SubRegionCode: "26350",
		Keyword:       "산책",
		PreviousTurns: []types.ChatTurn{
			{Role: types.RoleUser, Content: "부산 여행 중이야"},
		},
	})
	require.NoError(t, err)

	chunk, ok := <-out
	require.True(t, ok)
	assert.Equal(t, "해운대해수욕장 산책을 추천합니다.", chunk.Text)
	_, ok = <-out
	assert.False(t, ok)

	assert.Equal(t, []string{"chat:26/26350/산책"}, agg.calls)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "질문: 바다 근처 산책로 있어?")
	assert.Contains(t, prompt, "사용자: 부산 여행 중이야")
	assert.Contains(t, prompt, "해운대해수욕장")
}

func TestProcessMessageWithoutHistoryUsesMarker(t *testing.T) {
	agg := &fakeAggregator{}
	gen := &fakeGenerator{response: "답변"}
	stage := generativeAI.NewGenerationStage(gen, slog.Default())
	svc := NewChatService(agg, testStore(), stage, 0.7, 0, slog.Default())

	out, err := svc.ProcessMessage(context.Background(), types.ChatRequest{Message: "여행지 추천해줘"})
	require.NoError(t, err)
	for range out {
	}

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "이전 대화가 없습니다.")
	assert.Contains(t, gen.prompts[0], types.NoDataMarker())
}

func TestProcessMessageMissingTemplate(t *testing.T) {
	agg := &fakeAggregator{}
	stage := generativeAI.NewGenerationStage(&fakeGenerator{}, slog.Default())
	svc := NewChatService(agg, prompts.NewStoreFromMap(nil), stage, 0.7, 0, slog.Default())

	out, err := svc.ProcessMessage(context.Background(), types.ChatRequest{Message: "여행"})

	require.Error(t, err)
	assert.ErrorIs(t, err, prompts.ErrTemplateNotFound)
	assert.Nil(t, out)
}
