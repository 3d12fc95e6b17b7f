// Package gateway はホスト型バックエンドへのアクセスを提供する。
//
// ネットワーク呼び出しを行うことが許されるのはこのパッケージのみ。
// エンティティコレクションごとに型付きの読み書き操作を公開し、失敗は
// 空の結果と区別して返す（空リストは正常、エラーはエラー）。失敗を
// 安全デフォルトへ写像するのは1つ上の層（loader）の責務である。
package gateway

import (
	"context"

	"github.com/hitoshi/drinkscart/internal/model"
)

// AuthGateway は認証基盤へのアクセスインターフェース。
type AuthGateway interface {
	// SignIn はメールとパスワードでサインインし、セッションを確立する。
	// 資格情報誤りの場合はAuthErrorを返す。
	SignIn(ctx context.Context, email, password string) (*model.Session, error)

	// SignUp は新規アカウントとプロフィール項目を登録する。
	// 確認メールのフローは認証基盤側が担う。
	SignUp(ctx context.Context, email, password string, profile model.SignUpProfile) error

	// SignOut はセッションを破棄する。リモート呼び出しが失敗しても
	// ローカルのセッション状態は必ずクリアされる。
	SignOut(ctx context.Context) error

	// Session は現在のセッションを返す。セッションが存在しない場合は
	// (nil, nil)を返す。検証のためネットワークI/Oを行うことがある。
	Session(ctx context.Context) (*model.Session, error)

	// OnSessionChange はセッション変化（サインイン・サインアウト）の通知を
	// 購読する。別タブ相当の変化も含む。戻り値は購読解除関数。
	OnSessionChange(fn func(*model.Session)) (unsubscribe func())
}

// ProductGateway は商品・ブランド・カテゴリコレクションへのアクセスインターフェース。
type ProductGateway interface {
	// List はフィルタに合致する商品をcreated_at降順で返す。
	// ブランド名・カテゴリ名は結合取得で解決される。
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// Get は指定IDの商品を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (*model.Product, error)

	// Create は商品を作成し、作成された行を返す。
	Create(ctx context.Context, p *model.Product) (*model.Product, error)

	// Update は商品を更新し、更新された行を返す。
	Update(ctx context.Context, id string, p *model.Product) (*model.Product, error)

	// Delete は指定IDの商品を削除する。
	Delete(ctx context.Context, id string) error

	// Brands は全ブランドを名前順で返す。
	Brands(ctx context.Context) ([]model.Brand, error)

	// Categories は全カテゴリを名前順で返す。
	Categories(ctx context.Context) ([]model.Category, error)
}

// CartGateway はカートコレクションへのアクセスインターフェース。
type CartGateway interface {
	// ListByUser はユーザーのカート行を商品情報付きで返す。
	ListByUser(ctx context.Context, userID string) ([]model.CartItem, error)

	// Upsert はカート行を追加する。(user, product, selected_size)が既存の
	// 場合は上書きされる。一意性はストレージ境界のon-conflictで保証される。
	Upsert(ctx context.Context, item *model.CartItem) (*model.CartItem, error)

	// UpdateQuantity はカート行の数量を更新し、更新された行を返す。
	UpdateQuantity(ctx context.Context, id string, quantity int) (*model.CartItem, error)

	// Delete は指定IDのカート行を削除する。
	Delete(ctx context.Context, id string) error

	// Clear はユーザーの全カート行を削除する。
	Clear(ctx context.Context, userID string) error

	// CountByUser はユーザーのカート行数を返す。バッジ表示用。
	CountByUser(ctx context.Context, userID string) (int, error)
}

// OrderTotal は統計集計用の注文サマリー行。
type OrderTotal struct {
	TotalAmount float64
	Status      model.OrderStatus
}

// OrderGateway は注文コレクションへのアクセスインターフェース。
type OrderGateway interface {
	// ListByUser はユーザーの注文を明細付き・created_at降順で返す。
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)

	// ListAll は全注文をcreated_at降順で返す（管理者用・明細なし）。
	ListAll(ctx context.Context) ([]model.Order, error)

	// Get は指定IDの注文を明細付きで取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (*model.Order, error)

	// UpdateStatus は注文ステータスを更新し、更新された行を返す。
	// 遷移の妥当性は検証しない。
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)

	// ListTotals は統計集計用に全注文の金額とステータスのみを返す。
	ListTotals(ctx context.Context) ([]OrderTotal, error)
}

// ProfileGateway はユーザープロフィールコレクションへのアクセスインターフェース。
type ProfileGateway interface {
	// Find は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, id string) (*model.UserProfile, error)

	// Update はプロフィールを更新し、更新された行を返す。
	Update(ctx context.Context, id string, u model.ProfileUpdate) (*model.UserProfile, error)

	// Count は登録ユーザー数を返す。統計用。
	Count(ctx context.Context) (int, error)
}

// StorageGateway はファイルストレージへのアクセスインターフェース。
type StorageGateway interface {
	// Upload はオブジェクトをアップロードし、公開URLを返す。
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)

	// PublicURL はオブジェクトの公開URLを組み立てる。I/Oは行わない。
	PublicURL(bucket, key string) string
}
