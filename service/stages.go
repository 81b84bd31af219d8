package service

import (
	"context"
	"fmt"
	"strings"

	"GarmentStudio-server/models"
)

// 视觉分析的固定指令
const analysisInstruction = "Describe this garment for a product listing: " +
	"category, color, material, pattern, neckline, sleeve type and notable details. " +
	"Answer with concise attribute text only."

// StageResult 单个阶段的产出，由编排器写回记录并落库。
// 执行器只做转换，不碰状态字段，也不做持久化。
type StageResult struct {
	FrontAnalyse string
	BackAnalyse  string
	ProductTitle string
	ProductDesc  string
	ModelFront   string
	ModelBack    string
}

// RunAnalysisStage 视觉分析：正面必做，背面有图才做。
// 已有分析结果的字段不再覆盖（重试时幂等）。
func RunAnalysisStage(ctx context.Context, gen GenerationClient, rec *models.ProductRecord) (*StageResult, error) {
	res := &StageResult{
		FrontAnalyse: rec.FrontAnalyse,
		BackAnalyse:  rec.BackAnalyse,
	}

	if res.FrontAnalyse == "" {
		text, err := gen.Analyze(ctx, rec.RawFront, analysisInstruction)
		if err != nil {
			return nil, fmt.Errorf("front analysis failed: %w", err)
		}
		res.FrontAnalyse = text
	}

	if rec.RawBack != "" && res.BackAnalyse == "" {
		text, err := gen.Analyze(ctx, rec.RawBack, analysisInstruction)
		if err != nil {
			return nil, fmt.Errorf("back analysis failed: %w", err)
		}
		res.BackAnalyse = text
	}

	return res, nil
}

// RunSeoStage 文案生成：用户描述 + 分析文本 -> {title, description}
func RunSeoStage(ctx context.Context, gen GenerationClient, rec *models.ProductRecord) (*StageResult, error) {
	copyResult, err := gen.GenerateText(ctx, buildSeoPrompt(rec))
	if err != nil {
		return nil, fmt.Errorf("seo copy generation failed: %w", err)
	}
	return &StageResult{
		ProductTitle: copyResult.Title,
		ProductDesc:  copyResult.Description,
	}, nil
}

// RunFrontStage 正面合成：以原始正面图为条件图生成模特展示图
func RunFrontStage(ctx context.Context, gen GenerationClient, rec *models.ProductRecord) (*StageResult, error) {
	image, err := gen.SynthesizeImage(ctx, buildFrontPrompt(rec), []string{rec.RawFront})
	if err != nil {
		return nil, fmt.Errorf("front synthesis failed: %w", err)
	}
	return &StageResult{ModelFront: image}, nil
}

// RunBackStage 背面合成：同时以原始背面图和已合成的正面图为条件图，
// 保证前后视角一致。没有背面原图时返回空结果（由编排器直接短路完成）。
func RunBackStage(ctx context.Context, gen GenerationClient, rec *models.ProductRecord) (*StageResult, error) {
	if rec.RawBack == "" {
		return &StageResult{}, nil
	}
	image, err := gen.SynthesizeImage(ctx, buildBackPrompt(rec), []string{rec.RawBack, rec.ModelFront})
	if err != nil {
		return nil, fmt.Errorf("back synthesis failed: %w", err)
	}
	return &StageResult{ModelBack: image}, nil
}

func buildSeoPrompt(rec *models.ProductRecord) string {
	var sb strings.Builder
	sb.WriteString("Write SEO product copy for an online garment listing. ")
	sb.WriteString(`Return strict JSON: {"title": "...", "description": "..."}.`)
	if rec.Description != "" {
		sb.WriteString("\nSeller notes: " + rec.Description)
	}
	if rec.FrontAnalyse != "" {
		sb.WriteString("\nFront view analysis: " + rec.FrontAnalyse)
	}
	if rec.BackAnalyse != "" {
		sb.WriteString("\nBack view analysis: " + rec.BackAnalyse)
	}
	return sb.String()
}

func buildFrontPrompt(rec *models.ProductRecord) string {
	var sb strings.Builder
	sb.WriteString("Generate a front-view on-model product photo of the garment in the reference image.")
	writeAttr(&sb, "gender", rec.Gender)
	writeAttr(&sb, "age range", rec.AgeRange)
	writeAttr(&sb, "body type", rec.BodyType)
	writeAttr(&sb, "fit", rec.Fit)
	writeAttr(&sb, "background", rec.Background)
	writeAttr(&sb, "accessory", rec.Accessory)
	if rec.ProductTitle != "" {
		sb.WriteString("\nProduct: " + rec.ProductTitle)
	}
	if rec.FrontAnalyse != "" {
		sb.WriteString("\nGarment details: " + rec.FrontAnalyse)
	}
	return sb.String()
}

func buildBackPrompt(rec *models.ProductRecord) string {
	var sb strings.Builder
	sb.WriteString("Generate the back view of the same model and garment as the second reference image, ")
	sb.WriteString("using the first reference image for the garment's back details. ")
	sb.WriteString("Keep the model, pose style, lighting and background consistent.")
	if rec.BackAnalyse != "" {
		sb.WriteString("\nBack details: " + rec.BackAnalyse)
	}
	return sb.String()
}

func writeAttr(sb *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(sb, "\nModel %s: %s", name, value)
	}
}
