package announce

import (
	"context"
	"fmt"

	"github.com/rhinocodelab/wras/internal/logger"
)

// DefaultCategory 内置分类及其基础语言模板。
type DefaultCategory struct {
	Code        string
	Description string
	Template    string
}

// DefaultCategories 初始化时创建的分类，模板为英文。
var DefaultCategories = []DefaultCategory{
	{
		Code:        "arriving",
		Description: "Train arrival announcements",
		Template:    "Attention Please! Train number {train_number} {train_name} from {start_station} to {end_station} is arriving at platform number {platform}",
	},
	{
		Code:        "delay",
		Description: "Train delay announcements",
		Template:    "Attention Please! Train number {train_number} {train_name} from {start_station} to {end_station} is delayed by {delay_time} minutes. We apologize for the inconvenience.",
	},
	{
		Code:        "cancelled",
		Description: "Train cancellation announcements",
		Template:    "Attention Please! Train number {train_number} {train_name} from {start_station} to {end_station} scheduled for today has been cancelled. We apologize for the inconvenience",
	},
	{
		Code:        "platform_change",
		Description: "Platform change announcements",
		Template:    "Attention Please! The platform for train number {train_number} {train_name} from {start_station} to {end_station} has been changed to platform number {platform}.",
	},
}

// BootstrapResult 初始化结果。
type BootstrapResult struct {
	CategoriesCreated int `json:"categories_created"`
	TemplatesCreated  int `json:"templates_created"`
}

// Bootstrap 创建缺失的默认分类和基础语言模板，已存在的不做修改，可重复执行。
func Bootstrap(ctx context.Context, categories *CategoryStore, templates *TemplateStore, baseLang string, defaults []DefaultCategory) (*BootstrapResult, error) {
	result := &BootstrapResult{}

	for _, d := range defaults {
		category, err := categories.GetByCode(ctx, d.Code)
		if err != nil {
			return nil, err
		}
		if category == nil {
			category, err = categories.Create(ctx, d.Code, d.Description)
			if err != nil {
				return nil, err
			}
			result.CategoriesCreated++
		}

		existing, err := templates.Get(ctx, category.ID, baseLang)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		if _, err := templates.Upsert(ctx, category.ID, baseLang, d.Template); err != nil {
			return nil, fmt.Errorf("创建 %s 的基础模板失败: %w", d.Code, err)
		}
		result.TemplatesCreated++
	}

	logger.Infof("[announce] 初始化完成: 新建 %d 个分类, %d 个模板", result.CategoriesCreated, result.TemplatesCreated)
	return result, nil
}
