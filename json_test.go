package dynafield

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON(map[string]any{
		"a": []any{1, "two", true, nil},
		"b": map[string]any{"c": 1.5},
		"d": "<&>",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,"two",true,null],"b":{"c":1.5},"d":"<&>"}`, string(data))

	_, err = EncodeJSON(func() {})
	assert.Error(t, err)
}

func TestDecodeJSONRoundTrip(t *testing.T) {
	values := []any{
		nil,
		true,
		"text",
		int64(42),
		-3.25,
		[]any{},
		map[string]any{},
		[]any{"a", int64(1), false, nil, []any{int64(2)}},
		map[string]any{
			"nested": map[string]any{"deep": []any{map[string]any{"x": 1.5}}},
			"big":    int64(9007199254740993),
		},
	}

	for _, v := range values {
		data, err := EncodeJSON(v)
		require.NoError(t, err)

		got, err := DecodeJSON(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, v, got, string(data))
	}
}

func TestDecodeJSONLargeIntegers(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"12345678901234567890", uint64(12345678901234567890)},
		{"-12345678901234567890", json.Number("-12345678901234567890")},
		{"123456789012345678901234567890", json.Number("123456789012345678901234567890")},
		{"1e3", 1000.0},
		{`{"n": 12345678901234567890}`, map[string]any{"n": uint64(12345678901234567890)}},
	}
	for _, tt := range tests {
		got, err := DecodeJSON([]byte(tt.input))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, input := range []string{"", "{", `{"a":}`, "not json", `{"a":1} {"b":2}`, "[1] x"} {
		_, err := DecodeJSON([]byte(input))
		assert.ErrorIs(t, err, ErrMalformedJSON, input)
	}
}

func TestDecodeJSONInto(t *testing.T) {
	var out struct {
		Name string `json:"name"`
		Tags []string
	}
	require.NoError(t, DecodeJSONInto([]byte(`{"name":"x","Tags":["a"]}`), &out))
	assert.Equal(t, "x", out.Name)
	assert.Equal(t, []string{"a"}, out.Tags)

	assert.ErrorIs(t, DecodeJSONInto([]byte(`{"name":`), &out), ErrMalformedJSON)

	err := DecodeJSONInto([]byte(`{"name":1}`), &out)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedJSON)
}

type settings struct {
	Theme string   `json:"theme"`
	Sizes []int    `json:"sizes"`
	Extra *float64 `json:"extra"`
}

func TestJSONAttribute(t *testing.T) {
	type entity struct {
		Prefs JSON[settings] `dynamodbav:"prefs"`
		Any   JSON[any]      `dynamodbav:"any"`
	}

	in := entity{
		Prefs: NewJSON(settings{Theme: "dark", Sizes: []int{1, 2}}),
		Any:   NewJSON[any](map[string]any{"n": 7}),
	}

	item, err := attributevalue.MarshalMap(in)
	require.NoError(t, err)

	b, ok := item["prefs"].(*types.AttributeValueMemberB)
	require.True(t, ok)
	assert.Equal(t, `{"theme":"dark","sizes":[1,2],"extra":null}`, string(b.Value))

	var out entity
	require.NoError(t, attributevalue.UnmarshalMap(item, &out))
	assert.Equal(t, in.Prefs, out.Prefs)
	assert.Equal(t, map[string]any{"n": int64(7)}, out.Any.Value)
}

func TestJSONAttributeDecoding(t *testing.T) {
	var j JSON[settings]

	require.NoError(t, j.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberS{Value: `{"theme":"light"}`}))
	assert.Equal(t, "light", j.Value.Theme)

	require.NoError(t, j.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberNULL{Value: true}))
	assert.Equal(t, settings{}, j.Value)

	err := j.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberB{Value: []byte(`{"theme":`)})
	assert.ErrorIs(t, err, ErrMalformedJSON)

	assert.Error(t, j.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberN{Value: "1"}))
}

func TestJSONPlainJSON(t *testing.T) {
	wrapped := NewJSON(settings{Theme: "dark"})

	data, err := json.Marshal(wrapped)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark","sizes":null,"extra":null}`, string(data))

	var back JSON[settings]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, wrapped, back)
}
