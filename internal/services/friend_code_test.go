package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/fridgemate/internal/models"
)

var fixedNow = time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

func newTestFriendCodeService(db DB) *FriendCodeService {
	svc := NewFriendCodeService(db, models.FriendCodeTTL)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestFriendCodeService_GenerateCode_Success(t *testing.T) {
	accountID := uuid.New()
	var storedArgs []any
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "friend_code = $1 AND id <> $2") {
				t.Fatalf("unexpected query: %s", sql)
			}
			return rowFromValues(false)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			if !strings.Contains(sql, "SET friend_code = $2, friend_code_expires_at = $3") {
				t.Fatalf("unexpected exec: %s", sql)
			}
			storedArgs = args
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}

	svc := newTestFriendCodeService(db)
	code, err := svc.GenerateCode(context.Background(), accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !models.IsValidFriendCode(code.Code) {
		t.Fatalf("expected 8 characters of [A-Z0-9], got %q", code.Code)
	}
	if !code.ExpiresAt.Equal(fixedNow.Add(15 * time.Minute)) {
		t.Fatalf("expected expiry 15m from now, got %v", code.ExpiresAt)
	}
	if !IsCodeValid(&code.ExpiresAt, fixedNow) {
		t.Fatal("expected freshly generated code to be valid")
	}
	if len(storedArgs) != 3 || storedArgs[0] != accountID || storedArgs[1] != code.Code {
		t.Fatalf("unexpected stored args: %v", storedArgs)
	}
	if stored, ok := storedArgs[2].(time.Time); !ok || !stored.Equal(code.ExpiresAt) {
		t.Fatalf("expected stored expiry %v, got %v", code.ExpiresAt, storedArgs[2])
	}
}

func TestFriendCodeService_GenerateCode_RetriesOnCollision(t *testing.T) {
	checks := 0
	execs := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			checks++
			return rowFromValues(checks == 1)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			execs++
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}

	svc := newTestFriendCodeService(db)
	if _, err := svc.GenerateCode(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checks != 2 {
		t.Fatalf("expected 2 collision checks, got %d", checks)
	}
	if execs != 1 {
		t.Fatalf("expected a single write, got %d", execs)
	}
}

func TestFriendCodeService_GenerateCode_Exhausted(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(true)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			t.Fatal("code should not be stored")
			return nil, nil
		},
	}

	svc := newTestFriendCodeService(db)
	_, err := svc.GenerateCode(context.Background(), uuid.New())
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestFriendCodeService_GenerateCode_AccountNotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(false)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
	}

	svc := newTestFriendCodeService(db)
	_, err := svc.GenerateCode(context.Background(), uuid.New())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestFriendCodeService_GenerateCode_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowWithError(storeErr)
		},
	}

	svc := newTestFriendCodeService(db)
	_, err := svc.GenerateCode(context.Background(), uuid.New())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestNewFriendCode_RejectsBiasedBytes(t *testing.T) {
	// 255 and 252 fall above the largest multiple of 36 and are skipped.
	input := []byte{255, 252, 0, 1, 25, 26, 35, 36, 71, 9, 0, 0, 0, 0, 0, 0}
	code, err := newFriendCode(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "ABZ09A9J" {
		t.Fatalf("expected ABZ09A9J, got %q", code)
	}
}

func TestNewFriendCode_ReaderError(t *testing.T) {
	_, err := newFriendCode(bytes.NewReader([]byte{1, 2}))
	if err == nil {
		t.Fatal("expected error from short reader")
	}
}

func TestIsCodeValid(t *testing.T) {
	past := fixedNow.Add(-time.Second)
	future := fixedNow.Add(time.Second)
	now := fixedNow

	if IsCodeValid(nil, fixedNow) {
		t.Error("nil expiry should be invalid")
	}
	if IsCodeValid(&past, fixedNow) {
		t.Error("past expiry should be invalid")
	}
	if IsCodeValid(&now, fixedNow) {
		t.Error("expiry equal to now should be invalid")
	}
	if !IsCodeValid(&future, fixedNow) {
		t.Error("future expiry should be valid")
	}
}

func TestTimeRemaining(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		ts := fixedNow.Add(d)
		return &ts
	}

	tests := []struct {
		name   string
		expiry *time.Time
		want   string
	}{
		{"nil", nil, "Expired"},
		{"elapsed", at(-time.Millisecond), "Expired"},
		{"now", at(0), "Expired"},
		{"full ttl", at(15 * time.Minute), "15:00"},
		{"floors partial seconds", at(61*time.Second + 900*time.Millisecond), "1:01"},
		{"under a minute", at(9 * time.Second), "0:09"},
		{"sub second", at(500 * time.Millisecond), "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimeRemaining(tt.expiry, fixedNow)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if again := TimeRemaining(tt.expiry, fixedNow); again != got {
				t.Fatalf("expected repeatable result, got %q then %q", got, again)
			}
		})
	}
}

// redeemFixture scripts the queries RedeemCode issues inside its transaction.
type redeemFixture struct {
	holders       [][]any
	locked        [][]any
	alreadyFriend bool
	execs         []string
	execArgs      [][]any
}

func (f *redeemFixture) tx() *fakeTx {
	return &fakeTx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if strings.Contains(sql, "FOR UPDATE") {
				return &fakeRows{rows: f.locked}, nil
			}
			if strings.Contains(sql, "WHERE friend_code = $1") {
				return &fakeRows{rows: f.holders}, nil
			}
			return nil, errors.New("unexpected query")
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "FROM account_friends") {
				return rowFromValues(f.alreadyFriend)
			}
			return rowWithError(errors.New("unexpected query row"))
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			f.execs = append(f.execs, sql)
			f.execArgs = append(f.execArgs, args)
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
}

func TestFriendCodeService_RedeemCode_Success(t *testing.T) {
	caller := uuid.New()
	owner := uuid.New()
	code := "7K9QZX2M"
	expires := fixedNow.Add(10 * time.Minute)

	fx := &redeemFixture{
		holders: [][]any{{owner, "Grandma"}},
		locked: [][]any{
			{caller, nil, nil},
			{owner, code, expires},
		},
	}
	tx := fx.tx()

	svc := newTestFriendCodeService(dbWithTx(tx))
	friend, err := svc.RedeemCode(context.Background(), caller, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friend.ID != owner || friend.DisplayName != "Grandma" {
		t.Fatalf("unexpected friend: %+v", friend)
	}
	if !tx.committed {
		t.Fatal("expected transaction to commit")
	}
	if len(fx.execs) != 2 {
		t.Fatalf("expected friendship insert and code clear, got %d execs", len(fx.execs))
	}
	if !strings.Contains(fx.execs[0], "($1, $2), ($2, $1)") {
		t.Fatalf("expected symmetric insert, got %s", fx.execs[0])
	}
	if fx.execArgs[0][0] != caller || fx.execArgs[0][1] != owner {
		t.Fatalf("unexpected friendship args: %v", fx.execArgs[0])
	}
	if !strings.Contains(fx.execs[1], "friend_code = NULL") {
		t.Fatalf("expected code to be consumed, got %s", fx.execs[1])
	}
}

func TestFriendCodeService_RedeemCode_Expired(t *testing.T) {
	caller := uuid.New()
	owner := uuid.New()
	code := "7K9QZX2M"

	for name, expires := range map[string]any{
		"elapsed":        fixedNow.Add(-time.Minute),
		"expires now":    fixedNow,
		"missing expiry": nil,
	} {
		t.Run(name, func(t *testing.T) {
			fx := &redeemFixture{
				holders: [][]any{{owner, "Grandma"}},
				locked:  [][]any{{caller, nil, nil}, {owner, code, expires}},
			}
			tx := fx.tx()

			svc := newTestFriendCodeService(dbWithTx(tx))
			_, err := svc.RedeemCode(context.Background(), caller, code)
			if !errors.Is(err, ErrCodeExpired) {
				t.Fatalf("expected ErrCodeExpired, got %v", err)
			}
			if len(fx.execs) != 0 {
				t.Fatalf("expected no writes, got %v", fx.execs)
			}
			if tx.committed || !tx.rolledBack {
				t.Fatal("expected rollback")
			}
		})
	}
}

func TestFriendCodeService_RedeemCode_Self(t *testing.T) {
	caller := uuid.New()
	code := "ABCD1234"

	fx := &redeemFixture{
		holders: [][]any{{caller, "Me"}},
		locked:  [][]any{{caller, code, fixedNow.Add(time.Minute)}},
	}
	tx := fx.tx()

	svc := newTestFriendCodeService(dbWithTx(tx))
	_, err := svc.RedeemCode(context.Background(), caller, code)
	if !errors.Is(err, ErrSelfFriend) {
		t.Fatalf("expected ErrSelfFriend, got %v", err)
	}
	if len(fx.execs) != 0 || tx.committed {
		t.Fatal("expected no mutation")
	}
}

func TestFriendCodeService_RedeemCode_ExpiredOwnCodeReportsExpired(t *testing.T) {
	caller := uuid.New()
	code := "ABCD1234"

	fx := &redeemFixture{
		holders: [][]any{{caller, "Me"}},
		locked:  [][]any{{caller, code, fixedNow.Add(-time.Minute)}},
	}

	svc := newTestFriendCodeService(dbWithTx(fx.tx()))
	_, err := svc.RedeemCode(context.Background(), caller, code)
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestFriendCodeService_RedeemCode_AlreadyFriends(t *testing.T) {
	caller := uuid.New()
	owner := uuid.New()
	code := "ABCD1234"

	fx := &redeemFixture{
		holders:       [][]any{{owner, "Grandpa"}},
		locked:        [][]any{{caller, nil, nil}, {owner, code, fixedNow.Add(time.Minute)}},
		alreadyFriend: true,
	}
	tx := fx.tx()

	svc := newTestFriendCodeService(dbWithTx(tx))
	_, err := svc.RedeemCode(context.Background(), caller, code)
	if !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}
	if len(fx.execs) != 0 || tx.committed {
		t.Fatal("expected no duplicate insert")
	}
}

func TestFriendCodeService_RedeemCode_UnknownCode(t *testing.T) {
	fx := &redeemFixture{}
	svc := newTestFriendCodeService(dbWithTx(fx.tx()))

	_, err := svc.RedeemCode(context.Background(), uuid.New(), "ZZZZ9999")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestFriendCodeService_RedeemCode_MalformedCode(t *testing.T) {
	// No BeginFunc: a malformed code must not reach the store.
	svc := newTestFriendCodeService(&fakeDB{})

	for _, code := range []string{"", "abcd1234", "ABC", "ABCD-123", "ABCD12345"} {
		_, err := svc.RedeemCode(context.Background(), uuid.New(), code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q: expected ErrInvalidCode, got %v", code, err)
		}
	}
}

func TestFriendCodeService_RedeemCode_ReplacedBeforeLock(t *testing.T) {
	caller := uuid.New()
	owner := uuid.New()

	fx := &redeemFixture{
		holders: [][]any{{owner, "Grandma"}},
		locked:  [][]any{{caller, nil, nil}, {owner, "NEWCODE1", fixedNow.Add(time.Minute)}},
	}

	svc := newTestFriendCodeService(dbWithTx(fx.tx()))
	_, err := svc.RedeemCode(context.Background(), caller, "OLDCODE1")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestFriendCodeService_RedeemCode_MultipleHoldersPicksFirst(t *testing.T) {
	caller := uuid.New()
	first := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	second := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	code := "DUPE0000"

	fx := &redeemFixture{
		holders: [][]any{{first, "First"}, {second, "Second"}},
		locked:  [][]any{{first, code, fixedNow.Add(time.Minute)}, {caller, nil, nil}},
	}

	svc := newTestFriendCodeService(dbWithTx(fx.tx()))
	friend, err := svc.RedeemCode(context.Background(), caller, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friend.ID != first {
		t.Fatalf("expected first holder %v, got %v", first, friend.ID)
	}
}

func TestFriendCodeService_RedeemCode_CallerMissing(t *testing.T) {
	owner := uuid.New()
	code := "ABCD1234"

	fx := &redeemFixture{
		holders: [][]any{{owner, "Grandma"}},
		locked:  [][]any{{owner, code, fixedNow.Add(time.Minute)}},
	}

	svc := newTestFriendCodeService(dbWithTx(fx.tx()))
	_, err := svc.RedeemCode(context.Background(), uuid.New(), code)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestFriendCodeService_RedeemCode_BeginError(t *testing.T) {
	db := &fakeDB{
		BeginFunc: func(ctx context.Context) (Tx, error) {
			return nil, errors.New("pool closed")
		},
	}

	svc := newTestFriendCodeService(db)
	_, err := svc.RedeemCode(context.Background(), uuid.New(), "ABCD1234")
	if err == nil || !strings.Contains(err.Error(), "begin transaction") {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestFriendCodeService_GetCodeStatus(t *testing.T) {
	expires := fixedNow.Add(90 * time.Second)
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues("ABCD1234", expires)
		},
	}

	svc := newTestFriendCodeService(db)
	status, err := svc.GetCodeStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Valid || status.Code != "ABCD1234" || status.TimeRemaining != "1:30" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestFriendCodeService_GetCodeStatus_ExpiredHidesCode(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues("ABCD1234", fixedNow.Add(-time.Second))
		},
	}

	svc := newTestFriendCodeService(db)
	status, err := svc.GetCodeStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Valid || status.Code != "" || status.ExpiresAt != nil || status.TimeRemaining != "Expired" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestFriendCodeService_GetCodeStatus_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowWithError(pgx.ErrNoRows)
		},
	}

	svc := newTestFriendCodeService(db)
	_, err := svc.GetCodeStatus(context.Background(), uuid.New())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestFriendCodeService_ListFriends(t *testing.T) {
	friendID := uuid.New()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{rows: [][]any{{friendID, "Auntie", fixedNow}}}, nil
		},
	}

	svc := newTestFriendCodeService(db)
	friends, err := svc.ListFriends(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != friendID || friends[0].DisplayName != "Auntie" {
		t.Fatalf("unexpected friends: %+v", friends)
	}
}

func TestFriendCodeService_ListFriends_EmptyIsNotNil(t *testing.T) {
	svc := newTestFriendCodeService(&fakeDB{})
	friends, err := svc.ListFriends(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friends == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestFriendCodeService_RemoveFriend(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"removes both directions", 2, nil},
		{"not friends", 0, ErrNotFriends},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{
				ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
					if !strings.Contains(sql, "DELETE FROM account_friends") {
						t.Fatalf("unexpected exec: %s", sql)
					}
					return fakeCommandTag{rowsAffected: tt.affected}, nil
				},
			}

			svc := newTestFriendCodeService(db)
			err := svc.RemoveFriend(context.Background(), uuid.New(), uuid.New())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFriendCodeService_ClearExpiredCodes(t *testing.T) {
	var gotArgs []any
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			gotArgs = args
			return fakeCommandTag{rowsAffected: 3}, nil
		},
	}

	svc := newTestFriendCodeService(db)
	n, err := svc.ClearExpiredCodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 cleared, got %d", n)
	}
	if len(gotArgs) != 1 || gotArgs[0] != fixedNow {
		t.Fatalf("expected cutoff %v, got %v", fixedNow, gotArgs)
	}
}

func TestRedemptionOutcome(t *testing.T) {
	tests := map[error]string{
		nil:                "success",
		ErrInvalidCode:     "invalid_code",
		ErrCodeExpired:     "code_expired",
		ErrSelfFriend:      "self_friend",
		ErrAlreadyFriends:  "already_friends",
		ErrAccountNotFound: "not_found",
		errors.New("boom"): "store_error",
	}
	for err, want := range tests {
		if got := redemptionOutcome(err); got != want {
			t.Errorf("redemptionOutcome(%v) = %q, want %q", err, got, want)
		}
	}
}
