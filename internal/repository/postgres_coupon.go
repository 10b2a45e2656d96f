package repository

import (
	"context"
	"errors"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCouponRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCouponRepository(db *pgxpool.Pool) *PostgresCouponRepository {
	return &PostgresCouponRepository{
		db: db,
	}
}

func (p *PostgresCouponRepository) GetUserCoupon(ctx context.Context, userID, userCouponID int) (*domain.UserCoupon, error) {
	query := `
		SELECT
			uc.id,
			uc.user_id,
			uc.coupon_id,
			uc.used,
			uc.booking_id,
			c.id,
			c.code,
			c.type,
			c.value,
			c.max_discount,
			c.min_order_price,
			c.target,
			c.target_id,
			c.status,
			c.issue_date,
			c.expiry_date,
			c.usage_limit_per_user,
			c.total_usage_limit
		FROM user_coupons uc
		JOIN coupons c ON uc.coupon_id = c.id
		WHERE uc.id = $1 AND uc.user_id = $2
	`

	var (
		grant         domain.UserCoupon
		value         pgtype.Numeric
		maxDiscount   pgtype.Numeric
		minOrderPrice pgtype.Numeric
		couponType    string
		target        string
		status        string
	)

	err := p.db.QueryRow(ctx, query, userCouponID, userID).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.CouponID,
		&grant.Used,
		&grant.BookingID,
		&grant.Coupon.ID,
		&grant.Coupon.Code,
		&couponType,
		&value,
		&maxDiscount,
		&minOrderPrice,
		&target,
		&grant.Coupon.TargetID,
		&status,
		&grant.Coupon.IssueDate,
		&grant.Coupon.ExpiryDate,
		&grant.Coupon.UsageLimitPerUser,
		&grant.Coupon.TotalUsageLimit,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	grant.Coupon.Value = numericToDecimal(value)
	grant.Coupon.MinOrderPrice = numericToDecimal(minOrderPrice)

	if maxDiscount.Valid {
		capped := numericToDecimal(maxDiscount)
		grant.Coupon.MaxDiscount = &capped
	}

	grant.Coupon.Type, err = domain.ParseCouponType(couponType)
	if err != nil {
		return nil, err
	}

	grant.Coupon.Target, err = domain.ParseCouponTarget(target)
	if err != nil {
		return nil, err
	}

	grant.Coupon.Status, err = domain.ParseCouponStatus(status)
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

// GetUsage counts consumed grants of a coupon, globally and for one user.
// Reversed redemptions do not count: reversal clears the used flag.
func (p *PostgresCouponRepository) GetUsage(ctx context.Context, couponID, userID int) (domain.CouponUsage, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE user_id = $2)
		FROM user_coupons
		WHERE coupon_id = $1 AND used
	`

	var usage domain.CouponUsage

	err := p.db.QueryRow(ctx, query, couponID, userID).Scan(&usage.Total, &usage.ByUser)
	if err != nil {
		return domain.CouponUsage{}, err
	}

	return usage, nil
}
