package api

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"gaussfit/app"
	"gaussfit/domain/marks"
	"gaussfit/internal/config"
	"gaussfit/internal/errors"
	"gaussfit/internal/sample"
)

// AnalysisRequest is a decoded POST /api/analyses body
type AnalysisRequest struct {
	Title   string
	Tokens  []string
	Options app.Options
}

// ParseAnalysisRequest reads the request body. Fields left out keep the server defaults.
//
//	{"title": "...", "text": "...",            // or "tokens": ["72", 65, null, ...]
//	 "clamp": true,
//	 "rescale": {"mode": "multiplicative", "factor": 1.1},   // or {"mode": "target", "mean": 60, "sd": 12}
//	 "binWidth": 5}                                          // or "auto"
func ParseAnalysisRequest(body []byte, defaults app.Options) (*AnalysisRequest, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.InvalidInput("request body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.InvalidInput("request body must be a JSON object")
	}

	req := &AnalysisRequest{Options: defaults}

	text, tokens := root.Get("text"), root.Get("tokens")
	switch {
	case tokens.Exists():
		if !tokens.IsArray() {
			return nil, errors.InvalidInput("tokens must be an array")
		}
		req.Title = root.Get("title").String()
		for _, t := range tokens.Array() {
			req.Tokens = append(req.Tokens, tokenText(t))
		}
	case text.Exists():
		req.Title, req.Tokens = sample.SplitText(text.String())
		if title := root.Get("title"); title.Exists() {
			// An explicit title means every line of text is data
			req.Title = title.String()
			req.Tokens = textTokens(text.String())
		}
	default:
		return nil, errors.InvalidInput("request needs either text or tokens")
	}

	if clamp := root.Get("clamp"); clamp.Exists() {
		if clamp.Type != gjson.True && clamp.Type != gjson.False {
			return nil, errors.InvalidInput("clamp must be a boolean")
		}
		req.Options.ClampOutOfRange = clamp.Bool()
	}

	if rescale := root.Get("rescale"); rescale.Exists() {
		spec, err := parseRescale(rescale)
		if err != nil {
			return nil, err
		}
		req.Options.Rescale = spec
	}

	if bw := root.Get("binWidth"); bw.Exists() {
		width, err := parseBinWidth(bw)
		if err != nil {
			return nil, err
		}
		req.Options.BinWidth = width
	}

	return req, nil
}

// tokenText keeps numbers in their JSON spelling; null becomes an empty (missing) token
func tokenText(t gjson.Result) string {
	switch t.Type {
	case gjson.Number:
		return t.Raw
	case gjson.Null:
		return ""
	}
	return t.String()
}

// textTokens splits a body that carries no title line
func textTokens(text string) []string {
	_, tokens := sample.SplitText("title\n" + strings.TrimLeft(text, "\r\n"))
	return tokens
}

// parseRescale accepts a mode name or an object with the mode's parameters
func parseRescale(r gjson.Result) (marks.RescaleSpec, error) {
	if r.Type == gjson.String {
		r = gjson.Parse(`{"mode":` + r.Raw + `}`)
	}
	if !r.IsObject() {
		return marks.RescaleSpec{}, errors.InvalidInput("rescale must be a mode name or an object")
	}

	mode, err := marks.ParseRescaleMode(r.Get("mode").String())
	if err != nil {
		return marks.RescaleSpec{}, errors.InvalidInput(err.Error())
	}
	spec := marks.RescaleSpec{Mode: mode, Factor: 1, Mean: math.NaN(), SD: math.NaN()}

	switch mode {
	case marks.RescaleMultiplicative, marks.RescaleAdditive:
		factor := r.Get("factor")
		if factor.Type != gjson.Number {
			return spec, errors.InvalidInput(string(mode) + " rescaling needs a numeric factor")
		}
		spec.Factor = factor.Float()
	case marks.RescaleTargetMeanSD:
		mean, sd := r.Get("mean"), r.Get("sd")
		if mean.Type != gjson.Number || sd.Type != gjson.Number {
			return spec, errors.InvalidInput("target rescaling needs a numeric mean and sd")
		}
		spec.Mean, spec.SD = mean.Float(), sd.Float()
		if spec.SD <= 0 {
			return spec, errors.InvalidInput("target sd must be positive")
		}
	}
	return spec, nil
}

func parseBinWidth(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		if w := r.Float(); w > 0 {
			return w, nil
		}
		return 0, errors.InvalidInput("binWidth must be positive")
	case gjson.String, gjson.Null:
		w, err := config.ParseBinWidth(r.String())
		if err != nil {
			return 0, errors.WithCode(errors.CodeInvalidInput, err)
		}
		return w, nil
	}
	return 0, errors.InvalidInput(`binWidth must be a number or "auto"`)
}
