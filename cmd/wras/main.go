package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rhinocodelab/wras/internal/announce"
	"github.com/rhinocodelab/wras/internal/app"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/config"
	"github.com/rhinocodelab/wras/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/wras.yaml", "配置文件路径")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// 收到 SIGINT/SIGTERM 时停止正在运行的批量任务
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		return 1
	}
	defer a.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		err = cmdInit(ctx, a)
	case "templates":
		err = cmdTemplates(ctx, a, rest)
	case "update-template":
		err = cmdUpdateTemplate(ctx, a, rest)
	case "translate":
		err = cmdTranslate(ctx, a, rest)
	case "template-audio":
		err = cmdTemplateAudio(ctx, a, rest)
	case "segments":
		err = cmdSegments(ctx, a, rest)
	case "list-segments":
		err = cmdListSegments(ctx, a, rest)
	case "availability":
		err = cmdAvailability(ctx, a, rest)
	case "delete-segments":
		err = cmdDeleteSegments(ctx, a, rest)
	case "clear-segments":
		err = cmdClearSegments(ctx, a)
	case "announce":
		err = cmdAnnounce(ctx, a, rest)
	case "announcements":
		err = cmdAnnouncements(ctx, a, rest)
	case "detect":
		err = cmdDetect(ctx, a, rest)
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", cmd)
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s 失败: %v\n", cmd, err)
		return exitCode(err)
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "WRAS 多语言公告生成工具")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: wras [-config <path>] <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "命令:")
	fmt.Fprintln(os.Stderr, "  init                                  创建默认分类和基础语言模板")
	fmt.Fprintln(os.Stderr, "  templates [-category c]               列出模板")
	fmt.Fprintln(os.Stderr, "  update-template <id> <text>           修改模板文本")
	fmt.Fprintln(os.Stderr, "  translate [-category c] [-lang l,..] [-overwrite]")
	fmt.Fprintln(os.Stderr, "                                        机器翻译模板")
	fmt.Fprintln(os.Stderr, "  template-audio [-category c] [-lang l,..] [-overwrite]")
	fmt.Fprintln(os.Stderr, "                                        合成整句模板音频")
	fmt.Fprintln(os.Stderr, "  segments [-category c] [-lang l,..] [-overwrite]")
	fmt.Fprintln(os.Stderr, "                                        合成音频片段（带节流）")
	fmt.Fprintln(os.Stderr, "  list-segments [-category c] [-lang l]  列出已生成的片段")
	fmt.Fprintln(os.Stderr, "  availability -category c              查看片段生成情况")
	fmt.Fprintln(os.Stderr, "  delete-segments -category c           删除分类的全部片段")
	fmt.Fprintln(os.Stderr, "  clear-segments                        删除全部片段")
	fmt.Fprintln(os.Stderr, "  announce -category c -lang l [-p k=v ...]")
	fmt.Fprintln(os.Stderr, "                                        填充模板生成公告")
	fmt.Fprintln(os.Stderr, "  announcements -category c [-limit n]  查看最近生成的公告记录")
	fmt.Fprintln(os.Stderr, "  detect <text>                         识别文本语言")
}

// exitCode 按错误类别返回退出码。
func exitCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return 2
	case errors.Is(err, apperr.ErrValidation):
		return 3
	case errors.Is(err, apperr.ErrProvider):
		return 4
	default:
		return 1
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// langList 解析逗号分隔的语言列表。
func langList(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// paramFlags 收集可重复的 -p key=value 参数。
type paramFlags map[string]string

func (p paramFlags) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p paramFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("参数格式应为 key=value: %s", s)
	}
	p[strings.TrimSpace(k)] = v
	return nil
}

type jobFlags struct {
	category  string
	langs     string
	overwrite bool
}

func parseJobFlags(name string, args []string) (*jobFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := &jobFlags{}
	fs.StringVar(&f.category, "category", "", "分类代码，为空表示全部分类")
	fs.StringVar(&f.langs, "lang", "", "逗号分隔的语言代码，为空表示全部")
	fs.BoolVar(&f.overwrite, "overwrite", false, "覆盖已存在的结果")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func cmdInit(ctx context.Context, a *app.App) error {
	r, err := announce.Bootstrap(ctx, a.Categories, a.Templates, a.Languages().Base, announce.DefaultCategories)
	if err != nil {
		return err
	}
	if err := a.CheckCatalog(ctx); err != nil {
		logger.Warnf("[main] %v", err)
	}
	fmt.Printf("初始化完成: 新建 %d 个分类, %d 个模板\n", r.CategoriesCreated, r.TemplatesCreated)
	return nil
}

func cmdTemplates(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("templates", flag.ContinueOnError)
	category := fs.String("category", "", "分类代码")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var templates []announce.Template
	if *category != "" {
		c, err := a.CategoryByCode(ctx, *category)
		if err != nil {
			return err
		}
		if templates, err = a.Templates.ListByCategory(ctx, c.ID); err != nil {
			return err
		}
	} else {
		var err error
		if templates, err = a.Templates.List(ctx); err != nil {
			return err
		}
	}

	if len(templates) == 0 {
		fmt.Println("当前没有模板，请先执行 init。")
		return nil
	}
	fmt.Println("  ID  | 分类 | 语言 | 音频 | 模板")
	fmt.Println("  ----+------+------+------+----------")
	for _, t := range templates {
		audioFlag := " "
		if t.HasAudio {
			audioFlag = "✓"
		}
		fmt.Printf("  %-4d| %-5d| %-5s| %-5s| %s\n", t.ID, t.CategoryID, t.LanguageCode, audioFlag, t.Text)
	}
	return nil
}

func cmdUpdateTemplate(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return apperr.Validation("用法: wras update-template <id> <text>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return apperr.Validation("模板 ID 无效: %s", args[0])
	}
	t, err := a.Templates.UpdateText(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("模板 %d 已更新: %s\n", t.ID, t.Text)
	return nil
}

func cmdTranslate(ctx context.Context, a *app.App, args []string) error {
	if a.Translator == nil {
		return apperr.Validation("未配置翻译凭证 (translate.secret_id / translate.secret_key)")
	}
	f, err := parseJobFlags("translate", args)
	if err != nil {
		return err
	}
	if f.category == "" {
		r, err := a.Translator.GenerateAll(ctx, langList(f.langs), f.overwrite)
		if err != nil {
			return err
		}
		return printJSON(r)
	}
	c, err := a.CategoryByCode(ctx, f.category)
	if err != nil {
		return err
	}
	r, err := a.Translator.Generate(ctx, c.ID, langList(f.langs), f.overwrite)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdTemplateAudio(ctx context.Context, a *app.App, args []string) error {
	f, err := parseJobFlags("template-audio", args)
	if err != nil {
		return err
	}
	if f.category == "" {
		r, err := a.TemplateAudio.GenerateAll(ctx, langList(f.langs), f.overwrite)
		if err != nil {
			return err
		}
		return printJSON(r)
	}
	c, err := a.CategoryByCode(ctx, f.category)
	if err != nil {
		return err
	}
	r, err := a.TemplateAudio.Generate(ctx, c.ID, langList(f.langs), f.overwrite)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdSegments(ctx context.Context, a *app.App, args []string) error {
	f, err := parseJobFlags("segments", args)
	if err != nil {
		return err
	}
	if f.category == "" {
		r, err := a.SegmentGen.GenerateAll(ctx, langList(f.langs), f.overwrite)
		if r != nil {
			printJSON(r)
		}
		return err
	}
	c, err := a.CategoryByCode(ctx, f.category)
	if err != nil {
		return err
	}
	r, err := a.SegmentGen.GenerateForCategory(ctx, c.ID, langList(f.langs), f.overwrite)
	if r != nil {
		printJSON(r)
	}
	return err
}

func cmdListSegments(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-segments", flag.ContinueOnError)
	category := fs.String("category", "", "分类代码")
	lang := fs.String("lang", "", "语言代码（需同时指定分类）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *category == "" {
		if *lang != "" {
			return apperr.Validation("-lang 需要同时指定 -category")
		}
		segments, err := a.Segments.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(segments)
	}

	c, err := a.CategoryByCode(ctx, *category)
	if err != nil {
		return err
	}
	if *lang != "" {
		segments, err := a.Segments.ListByLanguage(ctx, c.ID, strings.ToLower(*lang))
		if err != nil {
			return err
		}
		return printJSON(segments)
	}
	segments, err := a.Segments.ListByCategory(ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(segments)
}

func requireCategory(ctx context.Context, a *app.App, name string, args []string) (*announce.Category, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	category := fs.String("category", "", "分类代码")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *category == "" {
		return nil, apperr.Validation("需要指定 -category")
	}
	return a.CategoryByCode(ctx, *category)
}

func cmdAvailability(ctx context.Context, a *app.App, args []string) error {
	c, err := requireCategory(ctx, a, "availability", args)
	if err != nil {
		return err
	}
	r, err := a.SegmentGen.Availability(ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdDeleteSegments(ctx context.Context, a *app.App, args []string) error {
	c, err := requireCategory(ctx, a, "delete-segments", args)
	if err != nil {
		return err
	}
	r, err := a.SegmentGen.DeleteForCategory(ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdClearSegments(ctx context.Context, a *app.App) error {
	r, err := a.SegmentGen.ClearAll(ctx)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdAnnounce(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("announce", flag.ContinueOnError)
	category := fs.String("category", "", "分类代码")
	lang := fs.String("lang", a.Languages().Base, "语言代码")
	params := paramFlags{}
	fs.Var(params, "p", "模板参数 key=value，可重复")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *category == "" {
		return apperr.Validation("需要指定 -category")
	}

	r, err := a.Assembler.Generate(ctx, *category, strings.ToLower(*lang), params)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func cmdAnnouncements(ctx context.Context, a *app.App, args []string) error {
	records, err := listAnnouncements(ctx, a, args)
	if err != nil {
		return err
	}
	return printJSON(records)
}

// listAnnouncements 按时间倒序返回分类的公告审计记录。
func listAnnouncements(ctx context.Context, a *app.App, args []string) ([]announce.Announcement, error) {
	fs := flag.NewFlagSet("announcements", flag.ContinueOnError)
	category := fs.String("category", "", "分类代码")
	limit := fs.Int("limit", 20, "最多返回的记录数，0 表示不限制")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *category == "" {
		return nil, apperr.Validation("需要指定 -category")
	}
	if *limit < 0 {
		return nil, apperr.Validation("-limit 不能为负数")
	}

	c, err := a.CategoryByCode(ctx, *category)
	if err != nil {
		return nil, err
	}
	records, err := a.Announcements.ListByCategory(ctx, c.ID, *limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []announce.Announcement{}
	}
	return records, nil
}

func cmdDetect(ctx context.Context, a *app.App, args []string) error {
	if a.Translator == nil {
		return apperr.Validation("未配置翻译凭证 (translate.secret_id / translate.secret_key)")
	}
	if len(args) == 0 {
		return apperr.Validation("用法: wras detect <text>")
	}
	lang, err := a.Translator.DetectLanguage(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(lang)
	return nil
}
