package service

import (
	"context"
	"strings"
	"testing"

	"GarmentStudio-server/models"
)

// TestAnalysisIdempotentOnRetry: populated analysis fields are never
// regenerated, so a manual retry does not redo (or re-bill) the vision calls.
func TestAnalysisIdempotentOnRetry(t *testing.T) {
	rec := &models.ProductRecord{
		ID:           "p1",
		RawFront:     "front-b64",
		RawBack:      "back-b64",
		FrontAnalyse: "already analysed front",
	}
	gen := &fakeGen{}

	res, err := RunAnalysisStage(context.Background(), gen, rec)
	if err != nil {
		t.Fatalf("RunAnalysisStage: %v", err)
	}
	if res.FrontAnalyse != "already analysed front" {
		t.Fatalf("front analyse overwritten: %q", res.FrontAnalyse)
	}
	if res.BackAnalyse == "" {
		t.Fatal("back analyse missing")
	}
	if analyze, _, _ := gen.counts(); analyze != 1 {
		t.Fatalf("analyze calls = %d, want 1 (only the missing back view)", analyze)
	}
}

func TestAnalysisSkipsBackWithoutImage(t *testing.T) {
	rec := &models.ProductRecord{ID: "p1", RawFront: "front-b64"}
	gen := &fakeGen{}

	res, err := RunAnalysisStage(context.Background(), gen, rec)
	if err != nil {
		t.Fatalf("RunAnalysisStage: %v", err)
	}
	if res.BackAnalyse != "" {
		t.Fatalf("back analyse = %q, want empty without a back image", res.BackAnalyse)
	}
	if analyze, _, _ := gen.counts(); analyze != 1 {
		t.Fatalf("analyze calls = %d, want 1", analyze)
	}
}

func TestSeoPromptCombinesDescriptionAndAnalysis(t *testing.T) {
	rec := &models.ProductRecord{
		ID:           "p1",
		Description:  "vintage denim jacket, slightly oversized",
		FrontAnalyse: "medium-wash denim, button front",
		BackAnalyse:  "plain back panel",
	}
	gen := &fakeGen{}

	if _, err := RunSeoStage(context.Background(), gen, rec); err != nil {
		t.Fatalf("RunSeoStage: %v", err)
	}
	for _, want := range []string{rec.Description, rec.FrontAnalyse, rec.BackAnalyse, `"title"`} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("seo prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
}

func TestFrontPromptCarriesModelAttributes(t *testing.T) {
	rec := &models.ProductRecord{
		ID:           "p1",
		RawFront:     "front-b64",
		Gender:       "male",
		AgeRange:     "30-40",
		BodyType:     "athletic",
		Fit:          "slim",
		Background:   "urban street",
		Accessory:    "leather belt",
		ProductTitle: "Slim Chino",
		FrontAnalyse: "beige cotton chino",
	}
	gen := &fakeGen{}

	if _, err := RunFrontStage(context.Background(), gen, rec); err != nil {
		t.Fatalf("RunFrontStage: %v", err)
	}
	for _, want := range []string{"male", "30-40", "athletic", "slim", "urban street", "leather belt", "Slim Chino", "beige cotton chino"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("front prompt missing %q:\n%s", want, gen.lastPrompt)
		}
	}
	if len(gen.lastConditioning) != 1 || gen.lastConditioning[0] != "front-b64" {
		t.Fatalf("conditioning = %v, want the raw front image", gen.lastConditioning)
	}
}

func TestBackStageConditionsOnRawBackAndSynthesizedFront(t *testing.T) {
	rec := &models.ProductRecord{
		ID:         "p1",
		RawBack:    "back-b64",
		ModelFront: "model-front-b64",
	}
	gen := &fakeGen{}

	res, err := RunBackStage(context.Background(), gen, rec)
	if err != nil {
		t.Fatalf("RunBackStage: %v", err)
	}
	if res.ModelBack == "" {
		t.Fatal("model back missing")
	}
	if len(gen.lastConditioning) != 2 || gen.lastConditioning[0] != "back-b64" || gen.lastConditioning[1] != "model-front-b64" {
		t.Fatalf("conditioning = %v, want raw back + synthesized front", gen.lastConditioning)
	}
}

func TestBackStageShortCircuitsWithoutImage(t *testing.T) {
	rec := &models.ProductRecord{ID: "p1"}
	gen := &fakeGen{}

	res, err := RunBackStage(context.Background(), gen, rec)
	if err != nil {
		t.Fatalf("RunBackStage: %v", err)
	}
	if res.ModelBack != "" {
		t.Fatalf("model back = %q, want empty", res.ModelBack)
	}
	if _, _, image := gen.counts(); image != 0 {
		t.Fatalf("image calls = %d, want none without a back image", image)
	}
}
