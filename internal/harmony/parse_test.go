package harmony

import (
	"errors"
	"fmt"
	"testing"

	"campfire/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("call-%d", n)
	}
}

func TestFreeTextParserNeverFails(t *testing.T) {
	for _, output := range []string{
		"Apply firm pressure to the wound.",
		"",
		`<|start|>assistant to=browser.search<|message|>{"q":"x"}<|call|>`,
	} {
		turns, err := (FreeTextParser{}).Parse(output)
		if err != nil {
			t.Fatalf("free-text parse failed on %q: %v", output, err)
		}
		if len(turns) != 1 || turns[0].Role != model.RoleAssistant || len(turns[0].Calls) != 0 {
			t.Fatalf("unexpected turns for %q: %+v", output, turns)
		}
	}
}

func TestParserForSelectsVariant(t *testing.T) {
	if _, ok := ParserFor(true).(*StructuredParser); !ok {
		t.Fatal("structured=true must select StructuredParser")
	}
	if _, ok := ParserFor(false).(FreeTextParser); !ok {
		t.Fatal("structured=false must select FreeTextParser")
	}
}

func TestStructuredParseFinalAnswer(t *testing.T) {
	p := &StructuredParser{NewCallID: sequentialIDs()}
	turns, err := p.Parse(`Wash the area.<|end|>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "Wash the area." || len(turns[0].Calls) != 0 {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestStructuredParseToolCall(t *testing.T) {
	p := &StructuredParser{NewCallID: sequentialIDs()}
	// completion continues the open assistant header, so the first
	// segment carries no <|start|> prefix
	turns, err := p.Parse(` to=browser.search<|constrain|>json<|message|>{"q":"severe bleeding","k":3}<|call|>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(turns) != 1 || len(turns[0].Calls) != 1 {
		t.Fatalf("want one call turn, got %+v", turns)
	}
	call := turns[0].Calls[0]
	if call.Recipient != "browser" || call.Method != "search" {
		t.Fatalf("bad routing: %q.%q", call.Recipient, call.Method)
	}
	if call.ID != "call-1" {
		t.Fatalf("call id not minted: %q", call.ID)
	}
	if call.Args["q"] != "severe bleeding" || call.Args["k"] != float64(3) {
		t.Fatalf("bad args: %v", call.Args)
	}
}

func TestStructuredParseAnswerThenCall(t *testing.T) {
	p := &StructuredParser{NewCallID: sequentialIDs()}
	output := `<|message|>Checking the guideline first.<|end|>` +
		`<|start|>assistant to=browser.open<|constrain|>json<|message|>{"doc_id":"burns","start":0,"end":80}<|call|>`
	turns, err := p.Parse(output)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("want 2 turns, got %d: %+v", len(turns), turns)
	}
	if turns[0].Text != "Checking the guideline first." {
		t.Fatalf("prose turn wrong: %+v", turns[0])
	}
	if len(turns[1].Calls) != 1 || turns[1].Calls[0].Method != "open" {
		t.Fatalf("call turn wrong: %+v", turns[1])
	}
}

func TestStructuredParseNoDelimitersIsFreeText(t *testing.T) {
	p := &StructuredParser{NewCallID: sequentialIDs()}
	turns, err := p.Parse(`{"checklist":[],"meta":{}}`)
	if err != nil {
		t.Fatalf("plain output must degrade to free text: %v", err)
	}
	if len(turns) != 1 || len(turns[0].Calls) != 0 {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestStructuredParseMalformed(t *testing.T) {
	p := &StructuredParser{NewCallID: sequentialIDs()}
	cases := map[string]string{
		"header without body": ` to=browser.search<|call|>`,
		"undecodable args":    ` to=browser.search<|constrain|>json<|message|>{"q":<|call|>`,
		"target without dot":  ` to=browser<|constrain|>json<|message|>{}<|call|>`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Parse(output); !errors.Is(err, model.ErrMalformedOutput) {
				t.Fatalf("want ErrMalformedOutput, got %v", err)
			}
		})
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	e := NewEngine()
	mustAppend(t, e, model.Turn{
		Role: model.RoleAssistant,
		Calls: []model.ToolCall{{
			ID: "orig", Recipient: "browser", Method: "find",
			Args: map[string]interface{}{"doc_id": "cpr", "pattern": "compressions", "after": 10},
		}},
	})
	prompt, _ := e.Render()

	p := &StructuredParser{NewCallID: sequentialIDs()}
	turns, err := p.Parse(prompt)
	if err != nil {
		t.Fatalf("parse of rendered output failed: %v", err)
	}

	var call *model.ToolCall
	for _, turn := range turns {
		if len(turn.Calls) > 0 {
			call = &turn.Calls[0]
			break
		}
	}
	if call == nil {
		t.Fatalf("no call recovered from %q", prompt)
	}
	if call.Recipient != "browser" || call.Method != "find" {
		t.Fatalf("routing lost in round trip: %q.%q", call.Recipient, call.Method)
	}
	if call.Args["pattern"] != "compressions" || call.Args["after"] != float64(10) {
		t.Fatalf("args lost in round trip: %v", call.Args)
	}
}
