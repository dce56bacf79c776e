package result_test

import (
	"encoding/json"
	"testing"

	"plando/internal/result"
)

func TestEnvelopeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"ok with data", result.Ok(map[string]int{"imported": 3}), `{"ok":true,"data":{"imported":3}}`},
		{"ok false flag", result.Ok(struct {
			Removed bool `json:"removed"`
		}{}), `{"ok":true,"data":{"removed":false}}`},
		{"failure", result.Fail[int](result.NotFound, "Task not found"), `{"ok":false,"error":{"code":"NOT_FOUND","message":"Task not found"}}`},
		{"ok empty slice", result.Ok([]int{}), `{"ok":true,"data":[]}`},
		{"ok zero int", result.Ok(0), `{"ok":true,"data":0}`},
		{"failure of struct", result.Fail[struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		}](result.NotFound, "Task not found"), `{"ok":false,"error":{"code":"NOT_FOUND","message":"Task not found"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(raw) != tc.want {
				t.Errorf("got %s, want %s", raw, tc.want)
			}
		})
	}
}

func TestEnvelopeDecodes(t *testing.T) {
	raw, err := json.Marshal(result.Ok([]string{"a"}))
	if err != nil {
		t.Fatal(err)
	}
	var back result.Result[[]string]
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if !back.OK || len(back.Data) != 1 || back.Error != nil {
		t.Errorf("decoded %+v", back)
	}
}

func TestCodeKinds(t *testing.T) {
	cases := map[result.Code]result.Kind{
		result.NotFound:          result.KindNotFound,
		result.InvalidTime:       result.KindValidation,
		result.InvalidFormat:     result.KindValidation,
		result.InvalidInput:      result.KindValidation,
		result.Cancelled:         result.KindCancelled,
		result.DBError:           result.KindUnexpected,
		result.NotificationError: result.KindUnexpected,
	}
	for code, want := range cases {
		if got := code.Kind(); got != want {
			t.Errorf("%s.Kind() = %d, want %d", code, got, want)
		}
	}
}

func TestErr(t *testing.T) {
	if err := result.Ok(1).Err(); err != nil {
		t.Errorf("success should have no error, got %v", err)
	}
	err := result.Fail[int](result.ImportError, "disk full").Err()
	if err == nil || err.Error() != "IMPORT_ERROR: disk full" {
		t.Errorf("unexpected error %v", err)
	}
}
