package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_Checkbox(t *testing.T) {
	// 行号 0 起为 false/true 交替
	assert.Equal(t, false, Synthesize("checkbox", nil, 0))
	assert.Equal(t, true, Synthesize("checkbox", nil, 1))
	assert.Equal(t, false, Synthesize("checkbox", nil, 2))
	assert.Equal(t, true, Synthesize("checkbox", nil, 3))
}

func TestSynthesize_SingleSelectCycles(t *testing.T) {
	options := map[string]string{OptionsKey: "A,B,C"}

	want := []string{"A", "B", "C", "A", "B", "C"}
	for i, w := range want {
		assert.Equal(t, w, Synthesize("single_select", options, i), "row %d", i)
	}
}

func TestSynthesize_MultiSelectDistinct(t *testing.T) {
	options := map[string]string{OptionsKey: "X,Y,Z"}

	for i := 0; i < 10; i++ {
		v := Synthesize("multi_select", options, i)
		values, ok := v.([]string)
		require.True(t, ok)
		require.NotEmpty(t, values)
		assert.LessOrEqual(t, len(values), 2)

		seen := map[string]bool{}
		for _, s := range values {
			assert.False(t, seen[s], "row %d contains duplicate %q", i, s)
			seen[s] = true
		}
	}
}

func TestSynthesize_MultiSelectCappedBySingleOption(t *testing.T) {
	options := map[string]string{OptionsKey: "Only"}

	v := Synthesize("multi_select", options, 1)
	values := v.([]string)
	assert.Equal(t, []string{"Only"}, values)
}

func TestSynthesize_NumberAndCurrency(t *testing.T) {
	assert.Equal(t, float64(100), Synthesize("number", nil, 0))
	assert.Equal(t, float64(300), Synthesize("number", nil, 2))
	assert.Equal(t, float64(1000), Synthesize("currency", nil, 0))
	assert.Equal(t, float64(2000), Synthesize("currency", nil, 1))
}

func TestSynthesize_Rating(t *testing.T) {
	want := []int{1, 2, 3, 4, 5, 1}
	for i, w := range want {
		assert.Equal(t, w, Synthesize("rating", nil, i))
	}
}

func TestSynthesize_DateWithinWindow(t *testing.T) {
	now := time.Now()
	lo := now.Add(-sampleWindow - time.Minute).UnixMilli()
	hi := now.Add(sampleWindow + time.Minute).UnixMilli()

	for i := 0; i < 20; i++ {
		for _, typeName := range []string{"date", "date_time"} {
			v := Synthesize(typeName, nil, i)
			ms, ok := v.(int64)
			require.True(t, ok)
			assert.GreaterOrEqual(t, ms, lo)
			assert.LessOrEqual(t, ms, hi)
		}
	}
}

func TestSynthesize_UnknownIsNil(t *testing.T) {
	assert.Nil(t, Synthesize("attachment", nil, 0))
	assert.Nil(t, Synthesize("member", nil, 0))
}

func TestSynthesizeRow(t *testing.T) {
	t.Run("未知类型字段被省略", func(t *testing.T) {
		fields := []Field{
			{Name: "タイトル", Type: "text"},
			{Name: "担当者", Type: "member"},
			{Name: "完了", Type: "checkbox"},
		}

		row := SynthesizeRow(fields, 0)
		require.NotNil(t, row)
		assert.Contains(t, row, "タイトル")
		assert.Contains(t, row, "完了")
		assert.NotContains(t, row, "担当者")
	})

	t.Run("全字段无法合成时返回 nil", func(t *testing.T) {
		fields := []Field{
			{Name: "担当者", Type: "member"},
			{Name: "添付", Type: "attachment"},
		}
		assert.Nil(t, SynthesizeRow(fields, 0))
	})

	t.Run("空字段列表返回 nil", func(t *testing.T) {
		assert.Nil(t, SynthesizeRow(nil, 0))
	})
}
