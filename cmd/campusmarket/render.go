package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/campusmarket/campusmarket/internal/view"
)

const timeLayout = "2006-01-02 15:04"

func printItems(w io.Writer, items []view.ItemView) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No listings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tSTATUS\tSELLER")
	for _, it := range items {
		price := formatAmount(it.Price)
		if it.IsAuction {
			price = "bid " + formatAmount(derefOr(it.CurrentBid, it.Price))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Title, price, it.Category, it.Status, it.SellerName)
	}
	_ = tw.Flush()
}

func printItem(w io.Writer, it view.ItemView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", it.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", it.Title)
	if it.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", it.Description)
	}
	fmt.Fprintf(tw, "Category:\t%s\n", it.Category)
	fmt.Fprintf(tw, "Condition:\t%s\n", it.Condition)
	fmt.Fprintf(tw, "Status:\t%s\n", it.Status)
	fmt.Fprintf(tw, "Seller:\t%s (%s)\n", it.SellerName, it.SellerID)
	fmt.Fprintf(tw, "Pickup:\t%s\n", it.PickupLocation)
	if it.IsAuction {
		fmt.Fprintf(tw, "Starting bid:\t%s\n", formatAmount(it.Price))
		fmt.Fprintf(tw, "Current bid:\t%s\n", formatAmount(derefOr(it.CurrentBid, it.Price)))
		if it.AuctionEndTime != nil {
			fmt.Fprintf(tw, "Ends:\t%s\n", it.AuctionEndTime.Local().Format(timeLayout))
		}
	} else {
		fmt.Fprintf(tw, "Price:\t%s\n", formatAmount(it.Price))
	}
	if it.ImageURL != "" {
		fmt.Fprintf(tw, "Image:\t%s\n", it.ImageURL)
	}
	fmt.Fprintf(tw, "Listed:\t%s\n", formatTime(it.CreatedAt))
	_ = tw.Flush()
}

func printBids(w io.Writer, bids []view.BidView) {
	if len(bids) == 0 {
		fmt.Fprintln(w, "No bids yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tAMOUNT\tBIDDER\tPLACED")
	for _, b := range bids {
		mark := ""
		if b.Leading {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, formatAmount(b.Amount), b.BidderID, formatTime(b.Timestamp))
	}
	_ = tw.Flush()
}

func printNotifications(w io.Writer, ns []view.NotificationView) {
	if len(ns) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTYPE\tTITLE\tRECEIVED")
	for _, n := range ns {
		mark := "*"
		if n.Read {
			mark = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, n.ID, n.Type, n.Title, formatTime(n.Timestamp))
	}
	_ = tw.Flush()
}

// formatAmount prints whole amounts without decimals and anything else with
// two.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
