package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/reeys/reeys-backend/internal/apperr"
	"github.com/reeys/reeys-backend/internal/models"
	"github.com/reeys/reeys-backend/internal/workpool"
)

// Generator orchestrates image generation. Pre-checks cover the whole batch
// before any gateway call; accounting afterwards is scaled to the number of
// images actually produced, so users are never charged for failed tasks.
type Generator struct {
	log      *slog.Logger
	gateway  Gateway
	uploader BlobUploader
	images   ImageStore
	packs    PackStore
	ledger   *Ledger
	quota    *Quota
	roles    *Roles
	subs     *Subscriptions
	pool     *workpool.Pool
}

func NewGenerator(
	log *slog.Logger,
	gateway Gateway,
	uploader BlobUploader,
	images ImageStore,
	packs PackStore,
	ledger *Ledger,
	quota *Quota,
	roles *Roles,
	subs *Subscriptions,
	pool *workpool.Pool,
) *Generator {
	return &Generator{
		log:      log,
		gateway:  gateway,
		uploader: uploader,
		images:   images,
		packs:    packs,
		ledger:   ledger,
		quota:    quota,
		roles:    roles,
		subs:     subs,
		pool:     pool,
	}
}

type GenerateResult struct {
	ImageData       []byte
	TokensRemaining int
}

type PackImage struct {
	ImageURL   string `json:"imageUrl"`
	Prompt     string `json:"prompt"`
	Index      int    `json:"index"`
	DocumentID string `json:"documentId"`
}

type PackResult struct {
	Images          []PackImage
	PackName        string
	TokensRemaining int
	GeneratedCount  int
	TotalPrompts    int
}

// GenerateSingle runs one prompt against the gateway inline, no pool needed.
func (g *Generator) GenerateSingle(ctx context.Context, uid string, original []byte, prompt string, reference []byte) (*GenerateResult, error) {
	role := g.roles.Resolve(ctx, uid)
	if err := g.preCheck(ctx, uid, role, 1); err != nil {
		return nil, err
	}

	image, err := g.gateway.GenerateImage(ctx, original, prompt, reference)
	if err != nil {
		g.log.Error("image generation failed", "uid", uid, "err", err)
		return nil, apperr.New(apperr.Internal, "Failed to generate image")
	}

	g.settle(ctx, uid, role, 1)

	balance, err := g.ledger.GetBalance(ctx, uid)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "Failed to read balance")
	}
	return &GenerateResult{ImageData: image, TokensRemaining: balance}, nil
}

// GeneratePack fans all pack prompts out to the shared worker pool, drops
// failed tasks, and returns the survivors ordered by their original index.
func (g *Generator) GeneratePack(ctx context.Context, uid, packID string, original []byte) (*PackResult, error) {
	pack, err := g.packs.FindByID(ctx, packID)
	if err != nil {
		g.log.Error("pack lookup failed", "pack_id", packID, "err", err)
		return nil, apperr.New(apperr.Internal, "Failed to load pack")
	}
	if pack == nil || !pack.IsActive {
		return nil, apperr.New(apperr.NotFound, "Pack not found")
	}
	if len(pack.Prompts) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, "Pack has no prompts")
	}

	total := len(pack.Prompts)
	role := g.roles.Resolve(ctx, uid)
	if err := g.preCheck(ctx, uid, role, total); err != nil {
		return nil, err
	}

	g.log.Info("generating pack", "uid", uid, "pack", pack.Name, "prompts", total)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]PackImage, 0, total)
	)
	for i, prompt := range pack.Prompts {
		wg.Add(1)
		go func(index int, prompt string) {
			defer wg.Done()
			if err := g.pool.Acquire(ctx); err != nil {
				g.log.Error("worker slot unavailable", "uid", uid, "index", index, "err", err)
				return
			}
			defer g.pool.Release()

			image, ok := g.generateAndPersist(ctx, uid, original, prompt, index)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, image)
			mu.Unlock()
		}(i, prompt)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })

	if len(results) == 0 {
		return nil, apperr.New(apperr.Internal, "Failed to generate any images")
	}

	produced := len(results)
	g.settle(ctx, uid, role, produced)

	balance, err := g.ledger.GetBalance(ctx, uid)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "Failed to read balance")
	}

	return &PackResult{
		Images:          results,
		PackName:        pack.Name,
		TokensRemaining: balance,
		GeneratedCount:  produced,
		TotalPrompts:    total,
	}, nil
}

// ListPacks returns the active prompt packs available for batch generation.
func (g *Generator) ListPacks(ctx context.Context) ([]models.Pack, error) {
	packs, err := g.packs.List(ctx)
	if err != nil {
		g.log.Error("pack listing failed", "err", err)
		return nil, apperr.New(apperr.Internal, "Failed to load packs")
	}
	return packs, nil
}

// ImageByID returns one generated image's metadata. Ownership is enforced:
// another user's image reads as not found.
func (g *Generator) ImageByID(ctx context.Context, uid, imageID string) (*models.GeneratedImage, error) {
	img, err := g.images.FindByID(ctx, imageID)
	if err != nil {
		g.log.Error("image lookup failed", "image_id", imageID, "err", err)
		return nil, apperr.New(apperr.Internal, "Failed to load image")
	}
	if img == nil || img.UserID != uid {
		return nil, apperr.New(apperr.NotFound, "Image not found")
	}
	return img, nil
}

// generateAndPersist runs one task: gateway call, blob upload, metadata
// record. A failure at any step drops the task without touching siblings.
func (g *Generator) generateAndPersist(ctx context.Context, uid string, original []byte, prompt string, index int) (PackImage, bool) {
	data, err := g.gateway.GenerateImage(ctx, original, prompt, nil)
	if err != nil {
		g.log.Error("pack image generation failed", "uid", uid, "index", index, "err", err)
		return PackImage{}, false
	}

	url, key, err := g.uploader.Upload(ctx, uid, data, "image/jpeg")
	if err != nil {
		g.log.Error("pack image upload failed", "uid", uid, "index", index, "err", err)
		return PackImage{}, false
	}

	docID, err := g.images.Save(ctx, uid, url, key, prompt)
	if err != nil {
		g.log.Error("pack image record failed", "uid", uid, "index", index, "err", err)
		return PackImage{}, false
	}

	return PackImage{
		ImageURL:   url,
		Prompt:     prompt,
		Index:      index,
		DocumentID: docID,
	}, true
}

// preCheck validates the whole batch before any generation: an opportunistic
// subscription refill, then balance cover unless admin/premium, then weekly
// quota room unless admin.
func (g *Generator) preCheck(ctx context.Context, uid string, role models.Role, count int) error {
	if refilled, err := g.subs.Refill(ctx, uid); err != nil {
		g.log.Error("subscription refill check failed", "uid", uid, "err", err)
	} else if refilled {
		g.log.Info("weekly subscription tokens refilled before generation", "uid", uid)
	}

	if role != models.RoleAdmin && role != models.RolePremium {
		balance, err := g.ledger.GetBalance(ctx, uid)
		if err != nil {
			g.log.Error("balance check failed", "uid", uid, "err", err)
			return apperr.New(apperr.Internal, "Failed to read balance")
		}
		if balance < count {
			return apperr.New(apperr.FailedPrecondition, "Insufficient tokens").WithDetails(map[string]any{
				"needsTokens": true,
				"balance":     balance,
				"required":    count,
			})
		}
	}

	if role != models.RoleAdmin {
		ok, err := g.quota.CheckWeeklyLimit(ctx, uid, count)
		if err != nil {
			g.log.Error("weekly limit check failed", "uid", uid, "err", err)
			return apperr.New(apperr.Internal, "Failed to check weekly limit")
		}
		if !ok {
			return apperr.New(apperr.FailedPrecondition, "Weekly generation limit exceeded").WithDetails(map[string]any{
				"weeklyLimitExceeded": true,
				"weeklyLimit":         WeeklyGenerationLimit,
				"imagesRequested":     count,
			})
		}
	}

	return nil
}

// settle charges and counts after generation, scaled to the produced count.
// Both writes are best-effort: the images already exist, so bookkeeping
// failure is logged rather than surfaced.
func (g *Generator) settle(ctx context.Context, uid string, role models.Role, produced int) {
	if role != models.RoleAdmin && role != models.RolePremium {
		ok, err := g.ledger.Deduct(ctx, uid, produced)
		if err != nil {
			g.log.Error("post-generation deduction failed", "uid", uid, "count", produced, "err", err)
		} else if !ok {
			g.log.Warn("post-generation deduction not covered", "uid", uid, "count", produced)
		}
	}

	if err := g.quota.IncrementUsage(ctx, uid, produced); err != nil {
		g.log.Error("failed to increment generation counts", "uid", uid, "count", produced, "err", err)
	}
}
